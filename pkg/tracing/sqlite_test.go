package tracing

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/anggasct/pelican"
)

var _ = Describe("SQLiteTraceWriter", func() {
	var (
		dir    string
		writer *SQLiteTraceWriter
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "pelican_trace")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)

		writer = NewSQLiteTraceWriter(filepath.Join(dir, "trace"))
		Expect(writer.Init()).To(Succeed())
	})

	AfterEach(func() {
		Expect(writer.Close()).To(Succeed())
	})

	It("should refuse to overwrite an existing database", func() {
		other := NewSQLiteTraceWriter(filepath.Join(dir, "trace"))
		Expect(other.Init()).To(MatchError(ContainSubstring("already exists")))
	})

	It("should keep events buffered until flushed", func() {
		writer.Log(pelican.NewEvent(pelican.EventPress, pelican.SeverityDebug, pelican.At(100)))

		reader := NewSQLiteTraceReader(writer.Path())
		Expect(reader.Init()).To(Succeed())
		defer reader.Close()

		count, err := reader.CountEvents(pelican.EventPress)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(0))

		Expect(writer.Flush()).To(Succeed())

		count, err = reader.CountEvents(pelican.EventPress)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(1))
	})

	It("should write a full batch in the background", func() {
		writer.SetBatchSize(2)
		writer.Log(pelican.NewEvent(pelican.EventPress, pelican.SeverityDebug, pelican.At(100)))
		writer.Log(pelican.NewEvent(pelican.EventPress, pelican.SeverityDebug, pelican.At(400)))

		Eventually(writer.Written).Should(Equal(uint64(2)))
		Expect(writer.Err()).NotTo(HaveOccurred())

		reader := NewSQLiteTraceReader(writer.Path())
		Expect(reader.Init()).To(Succeed())
		defer reader.Close()

		count, err := reader.CountEvents(pelican.EventPress)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(2))
	})

	It("should drop events logged after close", func() {
		writer.Log(pelican.NewEvent(pelican.EventPress, pelican.SeverityDebug, pelican.At(100)))
		Expect(writer.Close()).To(Succeed())
		Expect(writer.Written()).To(Equal(uint64(1)))

		for i := 0; i < 5000; i++ {
			writer.Log(pelican.NewEvent(pelican.EventPress, pelican.SeverityDebug, pelican.At(int64(200+i))))
		}

		Expect(writer.Dropped()).To(Equal(uint64(5000)))
		Expect(writer.Written()).To(Equal(uint64(1)))
		Expect(writer.Flush()).To(Succeed())
	})

	It("should drop events logged before init", func() {
		idle := NewSQLiteTraceWriter(filepath.Join(dir, "idle"))
		for i := 0; i < 3000; i++ {
			idle.Log(pelican.NewEvent(pelican.EventPress, pelican.SeverityDebug, pelican.At(int64(i))))
		}

		Expect(idle.Dropped()).To(Equal(uint64(3000)))
		Expect(idle.Flush()).To(Succeed())
		Expect(idle.Close()).To(Succeed())
		Expect(idle.Init()).To(MatchError(ContainSubstring("closed")))
	})

	It("should drop events when the queue is full", func() {
		busy := NewSQLiteTraceWriter(filepath.Join(dir, "busy"))
		busy.SetQueueSize(1)
		busy.SetBatchSize(1)
		Expect(busy.Init()).To(Succeed())

		const logged = 10000
		for i := 0; i < logged; i++ {
			busy.Log(pelican.NewEvent(pelican.EventPress, pelican.SeverityDebug, pelican.At(int64(i))))
		}
		Expect(busy.Close()).To(Succeed())

		Expect(busy.Dropped()).To(BeNumerically(">", 0))
		Expect(busy.Written() + busy.Dropped()).To(Equal(uint64(logged)))
		Expect(busy.Failed()).To(BeZero())
	})

	It("should discard a batch whose transaction fails", func() {
		writer.Log(pelican.NewEvent(pelican.EventPress, pelican.SeverityDebug, pelican.At(100)))
		Expect(writer.DB.Close()).To(Succeed())

		Expect(writer.Flush()).To(MatchError(ContainSubstring("cannot begin trace transaction")))
		Expect(writer.Failed()).To(Equal(uint64(1)))
		Expect(writer.Err()).To(HaveOccurred())

		Expect(writer.Flush()).To(Succeed())
		Expect(writer.Failed()).To(Equal(uint64(1)))
	})

	It("should record the transitions of a simulated cycle", func() {
		clock := pelican.NewManualClock(0)
		controller, err := pelican.NewBuilder().
			WithClock(clock).
			WithActuator(pelican.NewMemoryActuator()).
			WithSink(writer).
			Build()
		Expect(err).NotTo(HaveOccurred())

		simulated, err := controller.Simulate(clock, pelican.At(16000), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(simulated).To(HaveLen(4))
		Expect(writer.Flush()).To(Succeed())

		reader := NewSQLiteTraceReader(writer.Path())
		Expect(reader.Init()).To(Succeed())
		defer reader.Close()

		recorded, err := reader.ReadTransitions()
		Expect(err).NotTo(HaveOccurred())
		Expect(recorded).To(Equal(simulated))
		Expect(recorded[len(recorded)-1].From).To(Equal(pelican.Amber))
		Expect(recorded[len(recorded)-1].To).To(Equal(pelican.Red))

		started, err := reader.CountEvents(pelican.EventStarted)
		Expect(err).NotTo(HaveOccurred())
		Expect(started).To(Equal(1))
	})
})
