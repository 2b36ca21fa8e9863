package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/anggasct/pelican"
	"github.com/anggasct/pelican/pkg/kafkasink"
	"github.com/anggasct/pelican/pkg/monitoring"
	"github.com/anggasct/pelican/pkg/mqttio"
	"github.com/anggasct/pelican/pkg/observers"
	"github.com/anggasct/pelican/pkg/tracing"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the controller in real time.",
	Long: "Run ticks the controller on the wall clock until interrupted. " +
		"Outputs go to the console, or to MQTT when --mqtt-broker is set. " +
		"Each line read from stdin presses the button.",
	RunE: runController,
}

func init() {
	rootCmd.AddCommand(runCmd)
	flags := runCmd.Flags()
	flags.String("mqtt-broker", "", "MQTT broker URL, e.g. tcp://localhost:1883")
	flags.String("mqtt-prefix", "pelican", "MQTT topic prefix")
	flags.String("kafka-brokers", "", "comma separated Kafka brokers for the event stream")
	flags.String("kafka-topic", "pelican.events", "Kafka topic for the event stream")
	flags.String("trace-db", "", "write events to this SQLite database (without extension)")
	flags.Bool("trace", false, "write events to a SQLite database with a generated name")
	flags.Int("monitor-port", -1, "serve the monitoring API on this port (0 for random, -1 to disable)")
	flags.Bool("open", false, "open the monitoring API in a browser")
}

func runController(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	logger := newLogger(cmd.ErrOrStderr())

	logging, err := newLoggingObserver(cmd, out)
	if err != nil {
		return err
	}
	metrics := observers.NewMetricsObserver()
	audit := observers.NewValidationObserver(cfg.GreenMinimumDuration)

	builder := pelican.NewBuilder().
		WithConfig(cfg).
		WithSink(logging, metrics, audit)

	virtual := pelican.NewVirtualButton()
	broker, _ := cmd.Flags().GetString("mqtt-broker")
	if broker != "" {
		prefix, _ := cmd.Flags().GetString("mqtt-prefix")
		client, err := mqttio.Connect(broker, "pelican-"+prefix, 5*time.Second)
		if err != nil {
			return err
		}
		defer client.Disconnect(250)

		remote, err := mqttio.NewButton(client, prefix, 5*time.Second, logger)
		if err != nil {
			return err
		}
		builder.
			WithButton(pelican.ButtonFunc(func() bool { return remote.IsPressed() || virtual.IsPressed() })).
			WithActuator(mqttio.NewActuator(client, prefix, logger))
	} else {
		builder.
			WithButton(virtual).
			WithActuator(pelican.NewConsoleActuator(out, nil))
	}

	if brokers, _ := cmd.Flags().GetString("kafka-brokers"); brokers != "" {
		topic, _ := cmd.Flags().GetString("kafka-topic")
		sink := kafkasink.New(kafkasink.Config{
			Brokers: strings.Split(brokers, ","),
			Topic:   topic,
		}, logger)
		defer sink.Close()
		builder.WithSink(sink)
	}

	tracePath, _ := cmd.Flags().GetString("trace-db")
	traceOn, _ := cmd.Flags().GetBool("trace")
	if tracePath != "" || traceOn {
		writer := tracing.NewSQLiteTraceWriter(tracePath)
		if err := writer.Init(); err != nil {
			return err
		}
		defer writer.Close()
		fmt.Fprintf(cmd.ErrOrStderr(), "Trace is collected in %s\n", writer.Path())
		builder.WithSink(writer)
	}

	controller, err := builder.Build()
	if err != nil {
		return err
	}

	if port, _ := cmd.Flags().GetInt("monitor-port"); port >= 0 {
		monitor, err := monitoring.NewMonitor(controller).
			WithPortNumber(port).
			WithButton(virtual).
			WithLogger(logger).
			WithMetrics(metrics)
		if err != nil {
			return err
		}
		url, err := monitor.StartServer()
		if err != nil {
			return err
		}
		defer monitor.Shutdown(context.Background())

		if open, _ := cmd.Flags().GetBool("open"); open {
			if err := browser.OpenURL(url + "/api/state"); err != nil {
				logger.Warn("browser_open_failed", "error", err)
			}
		}
	}

	go func() {
		err := pressOnNewline(cmd.InOrStdin(), func() {
			virtual.Press()
			time.AfterFunc(monitoring.DefaultPressHold, virtual.Release)
		})
		if err != nil {
			logger.Warn("stdin_read_failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := controller.Run(ctx); err != nil {
		return err
	}

	for _, violation := range audit.GetViolations() {
		fmt.Fprintf(cmd.ErrOrStderr(), "audit: %s\n", violation)
	}
	return nil
}

// pressOnNewline calls press once per line read from r until r is exhausted
func pressOnNewline(r io.Reader, press func()) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		press()
	}
	return scanner.Err()
}
