package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gorilla/mux"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/anggasct/pelican"
	"github.com/anggasct/pelican/pkg/observers"
)

var _ = Describe("Monitor", func() {
	var (
		clock      *pelican.ManualClock
		button     *pelican.VirtualButton
		metrics    *observers.MetricsObserver
		controller *pelican.Controller
		m          *Monitor
		router     *mux.Router
	)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	BeforeEach(func() {
		clock = pelican.NewManualClock(0)
		button = pelican.NewVirtualButton()
		metrics = observers.NewMetricsObserver()

		var err error
		controller, err = pelican.NewBuilder().
			WithClock(clock).
			WithButton(button).
			WithActuator(pelican.NewMemoryActuator()).
			WithSink(metrics).
			Build()
		Expect(err).NotTo(HaveOccurred())
		Expect(controller.Start()).To(Succeed())

		m, err = NewMonitor(controller).
			WithButton(button).
			WithProfileDuration(20 * time.Millisecond).
			WithMetrics(metrics)
		Expect(err).NotTo(HaveOccurred())
		router = m.Router()
	})

	It("should serve the latest snapshot", func() {
		_, err := controller.Simulate(clock, pelican.At(5500), nil)
		Expect(err).NotTo(HaveOccurred())

		rec := get("/api/state")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var body map[string]any
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body["phase"]).To(Equal("red_amber"))
		Expect(body["pedestrian"]).To(Equal("idle"))
		Expect(body["running"]).To(BeTrue())
	})

	It("should serialize the snapshot in detail", func() {
		rec := get("/api/state/detail")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Len()).To(BeNumerically(">", 0))
	})

	It("should serve the configuration", func() {
		rec := get("/api/config")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var cfg pelican.Config
		Expect(json.Unmarshal(rec.Body.Bytes(), &cfg)).To(Succeed())
		Expect(cfg).To(Equal(pelican.DefaultConfig()))
	})

	It("should hold the virtual button on press", func() {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/press?hold_ms=50", nil)
		router.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusAccepted))
		Expect(button.IsPressed()).To(BeTrue())

		controller.Tick()
		Expect(controller.State().Pedestrian).To(Equal(pelican.Waiting))

		Eventually(button.IsPressed, time.Second, 10*time.Millisecond).Should(BeFalse())
	})

	It("should reject a bad hold", func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/press?hold_ms=-1", nil))
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(button.IsPressed()).To(BeFalse())
	})

	It("should only accept POST on press", func() {
		Expect(get("/api/press").Code).To(Equal(http.StatusMethodNotAllowed))
	})

	It("should report collected metrics", func() {
		_, err := controller.Simulate(clock, pelican.At(7000), nil)
		Expect(err).NotTo(HaveOccurred())

		rec := get("/api/metrics")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var snapshot observers.MetricsSnapshot
		Expect(json.Unmarshal(rec.Body.Bytes(), &snapshot)).To(Succeed())
		Expect(snapshot.TransitionCounts).To(HaveKeyWithValue("red->red_amber", 1))
		Expect(snapshot.TransitionCounts).To(HaveKeyWithValue("red_amber->green", 1))
		Expect(snapshot.CurrentPhase).To(Equal("green"))
	})

	It("should expose prometheus metrics", func() {
		_, err := controller.Simulate(clock, pelican.At(5000), nil)
		Expect(err).NotTo(HaveOccurred())

		rec := get("/metrics")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`pelican_transitions_total{cause="timeout",from="red",to="red_amber"} 1`))
	})

	It("should render the phase graph with the active phase", func() {
		rec := get("/api/graph")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(Equal("text/vnd.graphviz"))
		Expect(rec.Body.String()).To(ContainSubstring("digraph PelicanCrossing"))
		Expect(rec.Body.String()).To(ContainSubstring("[active]"))
	})

	It("should report process resources", func() {
		rec := get("/api/resource")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var rsp resourceRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should collect a CPU profile", func() {
		rec := get("/api/profile")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("SampleType"))
	})

	It("should answer 501 without a button", func() {
		router = NewMonitor(controller).Router()
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/press", nil))
		Expect(rec.Code).To(Equal(http.StatusNotImplemented))
	})

	It("should start and stop the server", func() {
		url, err := m.StartServer()
		Expect(err).NotTo(HaveOccurred())
		Expect(url).To(HavePrefix("http://localhost:"))

		rsp, err := http.Get(url + "/api/state")
		Expect(err).NotTo(HaveOccurred())
		rsp.Body.Close()
		Expect(rsp.StatusCode).To(Equal(http.StatusOK))

		_, err = m.StartServer()
		Expect(err).To(HaveOccurred())

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		Expect(m.Shutdown(ctx)).To(Succeed())
	})
})
