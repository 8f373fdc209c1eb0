package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"attendboard/internal/app"
	"attendboard/internal/attendance"
	"attendboard/internal/config"
	"attendboard/internal/logging"
	"attendboard/internal/mockapi"
	"attendboard/internal/model"
	"attendboard/internal/query"
	"attendboard/internal/store"
)

type options struct {
	remote  string
	verbose bool
}

// NewRootCommand creates the attendctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "attendctl",
		Short: "Talk to the attendance dashboard API",
		Long: `attendctl issues calls against the in-process mock API, seeded from the
same configuration as the server, or against a running server with --remote.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.remote, "remote", "", "base URL of a running server, e.g. http://localhost:8081")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log every call")

	cmd.AddCommand(newCallCommand(opts))
	cmd.AddCommand(newSeedCommand())
	cmd.AddCommand(newBulkCommand(opts))
	return cmd
}

func (o *options) logger() *zap.Logger {
	if !o.verbose {
		return zap.NewNop()
	}
	log, err := logging.New("dev")
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// doer returns the remote backend when --remote is set and a freshly seeded
// in-process dispatcher otherwise.
func (o *options) doer(log *zap.Logger) (query.Doer, error) {
	if o.remote != "" {
		return query.NewHTTPDoer(o.remote), nil
	}
	cfg := config.FromEnv()
	tables, err := app.LoadSeed(cfg)
	if err != nil {
		return nil, err
	}
	return mockapi.New(store.NewMemory(tables, nil), mockapi.WithLogger(log)), nil
}

func newCallCommand(opts *options) *cobra.Command {
	var data string
	cmd := &cobra.Command{
		Use:   "call <method> <path>",
		Short: "Issue one call and print the response",
		Example: `  attendctl call GET '/api/courses?department=MCA&semester=1'
  attendctl call POST /api/login --data '{"username":"admin","password":"admin123"}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doer, err := opts.doer(opts.logger())
			if err != nil {
				return err
			}
			var body any
			if data != "" {
				body = []byte(data)
			}
			resp := doer.Dispatch(cmd.Context(), args[0], args[1], body)
			fmt.Fprintln(cmd.OutOrStdout(), resp.Status)
			return printJSON(cmd.OutOrStdout(), resp.Bytes())
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	return cmd
}

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Summarize the seed dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromEnv()
			tables, err := app.LoadSeed(cfg)
			if err != nil {
				return err
			}
			counts := store.NewMemory(tables, nil).Counts()
			names := make([]string, 0, len(counts))
			for name := range counts {
				names = append(names, name)
			}
			sort.Strings(names)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "random seed %d\n", cfg.SeedRandom)
			for _, name := range names {
				fmt.Fprintf(out, "%-12s %d\n", name, counts[name])
			}
			return nil
		},
	}
}

func newBulkCommand(opts *options) *cobra.Command {
	var (
		req   attendance.BulkRequest
		marks []string
	)
	cmd := &cobra.Command{
		Use:   "bulk",
		Short: "Mark a whole class session",
		Long: `bulk records one attendance entry per student enrolled in the course.
Students without a --mark are recorded absent.`,
		Example: `  attendctl bulk --remote http://localhost:8081 --course MCA103 --class MCA103_Monday \
    --date 2025-02-10 --recorded-by 2 --mark 101=present --mark 103=excused:Medical`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed, err := parseMarks(marks)
			if err != nil {
				return err
			}
			req.Marks = parsed

			log := opts.logger()
			doer, err := opts.doer(log)
			if err != nil {
				return err
			}
			svc := attendance.NewService(query.NewClient(doer, query.WithLogger(log)), nil, nil, log)
			res, err := svc.Submit(cmd.Context(), req)
			if err != nil {
				return err
			}
			raw, err := json.Marshal(res)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), raw)
		},
	}
	cmd.Flags().StringVar(&req.CourseID, "course", "", "course id or code")
	cmd.Flags().StringVar(&req.ClassID, "class", "", "class id")
	cmd.Flags().StringVar(&req.Date, "date", "", "session date, YYYY-MM-DD")
	cmd.Flags().IntVar(&req.RecordedBy, "recorded-by", 0, "id of the recording user")
	cmd.Flags().StringArrayVar(&marks, "mark", nil, "studentId=status[:notes], repeatable")
	return cmd
}

// parseMarks reads "101=present" and "103=excused:Medical leave".
func parseMarks(specs []string) (map[int]attendance.Mark, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	out := make(map[int]attendance.Mark, len(specs))
	for _, spec := range specs {
		id, rest, found := strings.Cut(spec, "=")
		if !found {
			return nil, fmt.Errorf("mark %q: want studentId=status", spec)
		}
		studentID, err := strconv.Atoi(strings.TrimSpace(id))
		if err != nil {
			return nil, fmt.Errorf("mark %q: bad student id: %w", spec, err)
		}
		status, notes, _ := strings.Cut(rest, ":")
		out[studentID] = attendance.Mark{Status: model.Status(strings.TrimSpace(status)), Notes: notes}
	}
	return out, nil
}

func printJSON(w io.Writer, raw []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		_, err = fmt.Fprintln(w, string(raw))
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}
