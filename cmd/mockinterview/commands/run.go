package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mockinterview/internal/bootstrap"
	"mockinterview/internal/domain"
	"mockinterview/internal/report"
	"mockinterview/internal/usecase"
)

func newRunCommand() *cobra.Command {
	var (
		job         string
		jobFile     string
		resume      string
		resumeFile  string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an interview in the terminal",
		Long: `Run a full interview. Questions are spoken through the configured
playback device and answers are transcribed from the microphone. Typed
lines are submitted as answers; /skip, /mic, /camera, /retry and /end
control the session. Ctrl-C ends the interview and saves a partial report.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			jobText, err := readText(job, jobFile)
			if err != nil {
				return err
			}
			resumeText, err := readText(resume, resumeFile)
			if err != nil {
				return err
			}

			services, err := bootstrap.Build()
			if err != nil {
				return err
			}
			defer services.Close()

			if metricsAddr != "" {
				stop := serveMetrics(metricsAddr, services.Metrics.Handler())
				defer stop()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			r, err := runInterview(ctx, services, cmd.InOrStdin(), cmd.OutOrStdout(), noColor(cmd), jobText, resumeText)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), report.Text(r))
			return nil
		},
	}

	cmd.Flags().StringVar(&job, "job", "", "job description text")
	cmd.Flags().StringVar(&jobFile, "job-file", "", "file holding the job description")
	cmd.Flags().StringVar(&resume, "resume", "", "resume text")
	cmd.Flags().StringVar(&resumeFile, "resume-file", "", "file holding the resume")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

// interview is the subset of the session driven by the console.
type interview interface {
	Start(jobDescription, resume string) error
	SubmitAnswer(text string) error
	Skip() error
	ToggleMic() (bool, error)
	ToggleCamera() (bool, error)
	RetryMedia() error
	End()
}

func runInterview(ctx context.Context, services *bootstrap.Services, in io.Reader, out io.Writer, noColor bool, job, resume string) (domain.Report, error) {
	finished := make(chan domain.Report, 2)
	deliver := func(r domain.Report) {
		select {
		case finished <- r:
		default:
		}
	}

	con := newConsole(out, noColor)
	con.onFeedback = deliver
	session := services.NewSession(ctx, bootstrap.SessionOptions{Events: con, OnTerminate: deliver})
	if err := session.Start(job, resume); err != nil {
		return domain.Report{}, err
	}

	go readCommands(in, out, session, noColor)

	var r domain.Report
	select {
	case r = <-finished:
	case <-ctx.Done():
		session.End()
		r = <-finished
	}
	session.End()
	return r, nil
}

// readCommands forwards typed lines to the session until /end or EOF.
func readCommands(in io.Reader, out io.Writer, s interview, noColor bool) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var err error
		switch line {
		case "/end":
			s.End()
			return
		case "/skip":
			err = s.Skip()
		case "/mic":
			var on bool
			if on, err = s.ToggleMic(); err == nil {
				fmt.Fprintln(out, stylize("microphone "+onOff(on), noColor, colorDim))
			}
		case "/camera":
			var on bool
			if on, err = s.ToggleCamera(); err == nil {
				fmt.Fprintln(out, stylize("camera "+onOff(on), noColor, colorDim))
			}
		case "/retry":
			err = s.RetryMedia()
		default:
			err = s.SubmitAnswer(line)
		}

		switch {
		case err == nil:
		case errors.Is(err, usecase.ErrSessionEnded):
			return
		case errors.Is(err, usecase.ErrNoActiveQuestion):
			fmt.Fprintln(out, stylize("no question is waiting for an answer", noColor, colorWarn))
		default:
			fmt.Fprintln(out, stylize(err.Error(), noColor, colorError))
		}
	}
	s.End()
}

func serveMetrics(addr string, handler http.Handler) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}

func readText(text, path string) (string, error) {
	if path == "" {
		return strings.TrimSpace(text), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
