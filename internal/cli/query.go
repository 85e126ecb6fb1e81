package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/termdict/blocktree"
)

type getResult struct {
	Field string   `json:"field"`
	Term  string   `json:"term"`
	Docs  []uint32 `json:"docs"`
}

func (r getResult) String() string {
	return joinDocs(r.Docs)
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <segment> <field> <term>",
		Short: "Print the documents containing a term",
		Long: `Print the documents containing a term.

Exits with status 1 when the term does not exist.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, err := rootOpts.openSegment(ctx, args[0])
			if err != nil {
				return err
			}
			defer r.Close()

			docs, found, err := r.Lookup(ctx, args[1], []byte(args[2]))
			if err != nil {
				return classify("lookup", err)
			}
			if !found {
				return NewExitError(ExitFailure, fmt.Sprintf("term %q not found in field %q", args[2], args[1]))
			}
			return rootOpts.output(cmd).Success(getResult{Field: args[1], Term: args[2], Docs: docs.ToArray()})
		},
	}
}

// SeekOptions holds flags for the seek command.
type SeekOptions struct {
	*RootOptions
	Limit  int
	Prefix bool
}

type seekEntry struct {
	Term    string `json:"term"`
	DocFreq int    `json:"doc_freq"`
}

type seekResult struct {
	Status  string      `json:"status"`
	Entries []seekEntry `json:"entries"`
}

func (r seekResult) String() string {
	var sb strings.Builder
	for i, e := range r.Entries {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%s\t%d", e.Term, e.DocFreq)
	}
	return sb.String()
}

// NewSeekCommand creates the seek command.
func NewSeekCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeekOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seek <segment> <field> <target>",
		Short: "List the terms at or after a target",
		Long: `List the terms at or after a target with their document frequencies.

With --prefix only terms starting with the target are listed.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeek(cmd, opts, args[0], args[1], args[2])
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 10, "maximum number of terms")
	cmd.Flags().BoolVarP(&opts.Prefix, "prefix", "p", false, "stop at the first term without the target prefix")

	return cmd
}

func runSeek(cmd *cobra.Command, opts *SeekOptions, segment, field, target string) error {
	ctx := cmd.Context()
	r, err := opts.openSegment(ctx, segment)
	if err != nil {
		return err
	}
	defer r.Close()

	fr, err := r.Field(field)
	if err != nil {
		return classify("seek", err)
	}
	res := seekResult{Status: blocktree.SeekEnd.String(), Entries: []seekEntry{}}
	if fr.NumTerms() == 0 {
		return opts.output(cmd).Success(res)
	}
	s, err := fr.Seeker()
	if err != nil {
		return classify("seek", err)
	}
	status, err := s.SeekCeil([]byte(target))
	if err != nil {
		return classify("seek", err)
	}
	res.Status = status.String()

	term := s.Term()
	for status != blocktree.SeekEnd && term != nil && len(res.Entries) < opts.Limit {
		if opts.Prefix && !strings.HasPrefix(string(term), target) {
			break
		}
		df, err := s.DocFreq()
		if err != nil {
			return classify("seek", err)
		}
		res.Entries = append(res.Entries, seekEntry{Term: string(term), DocFreq: df})
		if term, err = s.Next(); err != nil {
			return classify("seek", err)
		}
	}
	return opts.output(cmd).Success(res)
}

type dumpEntry struct {
	Field string   `json:"field"`
	Term  string   `json:"term"`
	Docs  []uint32 `json:"docs"`
}

type dumpResult []dumpEntry

// String renders the entries in the format build reads.
func (r dumpResult) String() string {
	var sb strings.Builder
	for i, e := range r {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%s\t%s\t%s", e.Field, e.Term, joinDocs(e.Docs))
	}
	return sb.String()
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dump <segment> [field...]",
		Short: "Print every posting of a segment",
		Long: `Print every posting of a segment in the tab-separated format read by
build. Without fields, all fields are dumped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, err := rootOpts.openSegment(ctx, args[0])
			if err != nil {
				return err
			}
			defer r.Close()

			fields := args[1:]
			if len(fields) == 0 {
				fields = r.Fields()
			}
			res := dumpResult{}
			for _, f := range fields {
				for p, err := range r.Scan(ctx, f) {
					if err != nil {
						return classify("dump", err)
					}
					res = append(res, dumpEntry{Field: f, Term: string(p.Term), Docs: p.Docs.ToArray()})
				}
			}
			return rootOpts.output(cmd).Success(res)
		},
	}
}

type statsField struct {
	Name        string `json:"name"`
	Terms       int64  `json:"terms"`
	SumDocFreq  int64  `json:"sum_doc_freq"`
	MinTerm     string `json:"min_term"`
	MaxTerm     string `json:"max_term"`
	PostingsLen int64  `json:"postings_bytes"`
	BlocksLen   int64  `json:"blocks_bytes"`
	IndexLen    int64  `json:"index_bytes"`
}

type statsResult struct {
	Segment string       `json:"segment"`
	ID      string       `json:"id"`
	Created string       `json:"created"`
	Codec   string       `json:"codec"`
	Size    int64        `json:"size"`
	Fields  []statsField `json:"fields"`
}

func (r statsResult) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "segment %s\nid      %s\ncreated %s\ncodec   %s\nsize    %d", r.Segment, r.ID, r.Created, r.Codec, r.Size)
	for _, f := range r.Fields {
		fmt.Fprintf(&sb, "\nfield %s: terms=%d sum_doc_freq=%d min=%q max=%q postings=%d blocks=%d index=%d",
			f.Name, f.Terms, f.SumDocFreq, f.MinTerm, f.MaxTerm, f.PostingsLen, f.BlocksLen, f.IndexLen)
	}
	return sb.String()
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <segment>",
		Short: "Summarize a segment and its fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := rootOpts.openSegment(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer r.Close()

			info := r.Info()
			res := statsResult{
				Segment: info.Name,
				ID:      info.ID,
				Created: info.CreatedAt.Format(time.RFC3339),
				Codec:   info.Codec,
				Size:    info.Size,
				Fields:  make([]statsField, 0, len(info.Fields)),
			}
			for _, f := range info.Fields {
				res.Fields = append(res.Fields, statsField{
					Name:        f.Name,
					Terms:       f.NumTerms,
					SumDocFreq:  f.SumDocFreq,
					MinTerm:     string(f.MinTerm),
					MaxTerm:     string(f.MaxTerm),
					PostingsLen: f.PostingsLen,
					BlocksLen:   f.BlocksLen,
					IndexLen:    f.IndexLen,
				})
			}
			return rootOpts.output(cmd).Success(res)
		},
	}
}

type listResult []string

func (r listResult) String() string { return strings.Join(r, "\n") }

// NewListCommand creates the ls command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [prefix]",
		Short: "List the blobs in the store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := rootOpts.store(ctx)
			if err != nil {
				return err
			}
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			names, err := store.List(ctx, prefix)
			if err != nil {
				return WrapExitError(ExitFailure, "list", err)
			}
			return rootOpts.output(cmd).Success(listResult(names))
		},
	}
}

func joinDocs(docs []uint32) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = fmt.Sprint(d)
	}
	return strings.Join(parts, ",")
}
