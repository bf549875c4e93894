package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog/log"

	"github.com/floortrack/floortrack/internal/logger"
)

func TestInitValidation(t *testing.T) {
	err := logger.Init(logger.Log{LogLevel: "info", AppName: "floortrack"})
	if !errors.Is(err, logger.ErrServiceNameIsEmpty) {
		t.Errorf("expected ErrServiceNameIsEmpty, got %v", err)
	}

	err = logger.Init(logger.Log{LogLevel: "info", ServiceName: "api"})
	if !errors.Is(err, logger.ErrAppNameIsEmpty) {
		t.Errorf("expected ErrAppNameIsEmpty, got %v", err)
	}

	err = logger.Init(logger.Log{LogLevel: "loud", ServiceName: "api", AppName: "floortrack"})
	if err == nil {
		t.Error("expected error for unsupported log level")
	}
}

func TestLogger(t *testing.T) {
	type testCase struct {
		name             string
		cfg              logger.Log
		shouldHaveOutPut bool
		outPutIsJSON     bool
	}

	testCases := []testCase{
		{
			name: "no logger enabled log level not set",
			cfg: logger.Log{
				LogLevel:    "",
				ServiceName: "api",
				AppName:     "floortrack",
			},
			shouldHaveOutPut: false,
		},
		{
			name: "console enabled log level info",
			cfg: logger.Log{
				LogLevel:    "info",
				ServiceName: "api",
				AppName:     "floortrack",
				Console:     logger.Console{Enabled: true},
			},
			shouldHaveOutPut: true,
			outPutIsJSON:     true,
		},
		{
			name: "console enabled console writer enabled",
			cfg: logger.Log{
				LogLevel:    "info",
				ServiceName: "api",
				AppName:     "floortrack",
				Console:     logger.Console{Enabled: true, UseConsoleWriter: true},
			},
			shouldHaveOutPut: true,
		},
		{
			name: "trace level with caller reporting expect json stack",
			cfg: logger.Log{
				LogLevel:     "trace",
				ServiceName:  "api",
				AppName:      "floortrack",
				ReportCaller: true,
				Console:      logger.Console{Enabled: true},
			},
			shouldHaveOutPut: true,
			outPutIsJSON:     true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := testLoggerConfig(t, tc.cfg)
			t.Logf("out: %s", out)

			switch {
			case out == "" && tc.shouldHaveOutPut:
				t.Errorf("expected console output but got none")
			case tc.outPutIsJSON:
				for _, outLine := range strings.Split(out, "\n") {
					if outLine == "" {
						continue
					}

					var dummy map[string]any
					if err := json.Unmarshal([]byte(outLine), &dummy); err != nil {
						t.Errorf("expected json output but got: %s", outLine)
					}
				}
			}
		})
	}
}

func alwaysErrFunc() error {
	return errors.New("a test error") //nolint:goerr113
}

func testLoggerConfig(t *testing.T, cfg logger.Log) string {
	t.Helper()

	stdout := os.Stdout
	stderr := os.Stderr

	// capture stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	os.Stderr = w

	err := logger.Init(cfg)
	if err != nil {
		t.Error(err)
	}

	log.Info().Msg("this info message should be seen...")
	log.Error().Err(alwaysErrFunc()).Msg("this err message should be seen...")
	log.Trace().Err(alwaysErrFunc()).Msg("this trace message should be seen...")

	outC := make(chan string)
	// copy the output in a separate goroutine so printing can't block indefinitely
	go func() {
		var buf bytes.Buffer
		_, err = io.Copy(&buf, r)
		if err != nil {
			t.Error(err)
		}
		outC <- buf.String()
	}()

	_ = w.Close()
	os.Stdout = stdout
	os.Stderr = stderr

	return <-outC
}
