package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/amishk599/cvvin/internal/analysis"
	"github.com/amishk599/cvvin/internal/document"
	"github.com/amishk599/cvvin/internal/model"
	"github.com/amishk599/cvvin/internal/resolve"
	"github.com/amishk599/cvvin/internal/scheduler"
	"github.com/amishk599/cvvin/internal/tui"
)

var (
	resumeSourceFlag string
	resumePath       string
	jdText           string
	jdFile           string
	jdURL            string
	analyzeTUI       bool
	analyzeWatch     bool
	analyzeNotify    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Score a resume against a job description",
	Long: "Analyze compares the skills found in a resume with those a job description asks for.\n" +
		"Choose the resume explicitly with --resume-source profile or --resume-source upload --resume <file.pdf>.\n" +
		"The job description comes from --jd-text, or from --jd-file or --jd-url when no text is given.",
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVarP(&resumeSourceFlag, "resume-source", "s", "", `where the resume comes from: "profile" or "upload"`)
	f.StringVarP(&resumePath, "resume", "r", "", "resume PDF to upload for this analysis")
	f.StringVar(&jdText, "jd-text", "", "job description text; takes precedence over --jd-file and --jd-url")
	f.StringVar(&jdFile, "jd-file", "", "job description file (.pdf or .txt)")
	f.StringVar(&jdURL, "jd-url", "", "Greenhouse, Lever or Ashby job posting link")
	f.BoolVar(&analyzeTUI, "tui", false, "show progress and the report in an interactive viewer")
	f.BoolVarP(&analyzeWatch, "watch", "w", false, "re-run whenever the resume or job description file changes")
	f.BoolVar(&analyzeNotify, "notify", false, "send each completed result to the configured notifier")
	analyzeCmd.MarkFlagsMutuallyExclusive("jd-file", "jd-url")
	analyzeCmd.MarkFlagsMutuallyExclusive("tui", "watch")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openStageApp(cmd, model.StageAnalysis)
	if err != nil {
		return err
	}
	defer a.Close()

	httpClient := &http.Client{Timeout: 30 * time.Second}
	n := setupNotifier(a.cfg, httpClient, a.logger)
	var runNotifier model.Notifier
	if analyzeNotify {
		runNotifier = n
	}
	ctrl, err := a.newController(runNotifier)
	if err != nil {
		return err
	}
	postings := setupPostingFetcher(a.cfg, a.logger)
	unsubscribe := ctrl.Subscribe(func(st analysis.Status) {
		a.logger.Debug("analysis state", "run_id", st.RunID, "state", analysisStatus(st))
	})
	defer unsubscribe()

	out := cmd.OutOrStdout()

	if analyzeTUI {
		in, err := buildInputs(ctx, a, postings)
		if err != nil {
			return err
		}
		run, err := ctrl.Start(ctx, in)
		if err != nil {
			return err
		}
		res, err := tui.RunLoader("Analyzing your resume", run, func() { ctrl.Cancel(run) })
		if err != nil {
			return err
		}
		return tui.RunReportViewer(res, n.Notify)
	}

	analyzeOnce := func(ctx context.Context) error {
		in, err := buildInputs(ctx, a, postings)
		if err != nil {
			return err
		}
		res, err := ctrl.Analyze(ctx, in)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, tui.RenderReport(res, reportWidth(out)))
		return nil
	}

	if !analyzeWatch {
		return analyzeOnce(ctx)
	}

	watcher := scheduler.NewWatcher([]string{resumePath, jdFile}, a.cfg.Watch.Interval, func(ctx context.Context) error {
		err := analyzeOnce(ctx)
		if err != nil && !errors.Is(err, model.ErrCanceled) {
			fmt.Fprintln(cmd.ErrOrStderr(), model.UserMessage(err))
		}
		return err
	}, a.logger)
	fmt.Fprintf(cmd.ErrOrStderr(), "Watching for changes every %s. Press Ctrl+C to stop.\n", a.cfg.Watch.Interval)
	return watcher.Run(ctx)
}

// buildInputs reads the files named on the command line. Files are re-read
// on every call so watch mode sees their latest content. A job description
// file is only type-checked here; its text is extracted inside the run.
func buildInputs(ctx context.Context, a *app, postings model.PostingFetcher) (resolve.Inputs, error) {
	var in resolve.Inputs

	if resumeSourceFlag != "" {
		src, err := resolve.ParseResumeSource(resumeSourceFlag)
		if err != nil {
			return in, err
		}
		in.ResumeSource = src
	}

	if resumePath != "" {
		up, err := readUpload(resumePath, a.cfg.Analysis.MaxUploadBytes)
		if err != nil {
			return in, err
		}
		doc, err := document.AcceptResume(up, model.SourceUpload)
		if err != nil {
			return in, err
		}
		in.UploadedResume = &doc
	}

	if jdFile != "" {
		up, err := readUpload(jdFile, a.cfg.Analysis.MaxUploadBytes)
		if err != nil {
			return in, err
		}
		doc, err := document.AcceptJobDescription(up)
		if err != nil {
			return in, err
		}
		in.JobDescription = &doc
	}
	if jdURL != "" && jdText == "" {
		check := in
		check.Profile = a.sessions.CurrentProfile()
		if _, err := resolve.ResolveResume(check); err != nil {
			return in, err
		}
		p, err := postings.FetchPosting(ctx, jdURL)
		if err != nil {
			return in, err
		}
		doc := document.FromText(postingName(p), p.Text)
		in.JobDescription = &doc
		in.JobDescriptionText = doc.Text()
	}
	if jdText != "" {
		in.JobDescriptionText = jdText
	}
	return in, nil
}

func postingName(p model.Posting) string {
	switch {
	case p.Title != "" && p.Company != "":
		return p.Title + " at " + p.Company
	case p.Title != "":
		return p.Title
	}
	return p.URL
}

// analysisStatus adapts controller states to short labels for debug output.
func analysisStatus(st analysis.Status) string {
	if st.Err != nil {
		return fmt.Sprintf("%s (%v)", st.State, st.Err)
	}
	return string(st.State)
}

func reportWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok && term.IsTerminal(f.Fd()) {
		if width, _, err := term.GetSize(f.Fd()); err == nil && width > 20 {
			return min(width, 100)
		}
	}
	return 80
}
