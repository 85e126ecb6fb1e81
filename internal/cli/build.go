package cli

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"os"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/spf13/cobra"

	"github.com/hupe1980/termdict"
	"github.com/hupe1980/termdict/codec"
)

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	*RootOptions
	Compression string
	Codec       string
	MinItems    int
	MaxItems    int
	Concurrency int
}

type buildResult struct {
	Segment string `json:"segment"`
	ID      string `json:"id"`
	Fields  int    `json:"fields"`
	Terms   int    `json:"terms"`
}

func (r buildResult) String() string {
	return fmt.Sprintf("built %s (id %s): %d fields, %d terms", r.Segment, r.ID, r.Fields, r.Terms)
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "build <segment> [input...]",
		Short: "Build a segment from tab-separated postings",
		Long: `Build a segment from tab-separated postings.

Each input line is "field<TAB>term<TAB>doc[,doc...]". Lines may appear in any
order and repeated terms are merged. Empty lines and lines starting with '#'
are skipped. Without inputs, or with "-", postings are read from stdin.

Example:
  printf 'title\tapple\t1,4\ntitle\tbanana\t2\n' | termdict build seg-1`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, opts, args[0], args[1:])
		},
	}

	cmd.Flags().StringVar(&opts.Compression, "compression", "", "term block compression (none|lz4|zstd)")
	cmd.Flags().StringVar(&opts.Codec, "codec", "", "metadata codec ("+strings.Join(codec.Names(), "|")+")")
	cmd.Flags().IntVar(&opts.MinItems, "min-items", 0, "minimum entries per term block")
	cmd.Flags().IntVar(&opts.MaxItems, "max-items", 0, "maximum entries per term block")
	cmd.Flags().IntVarP(&opts.Concurrency, "concurrency", "j", 0, "fields built in parallel")

	return cmd
}

func runBuild(cmd *cobra.Command, opts *BuildOptions, segment string, inputs []string) error {
	ctx := cmd.Context()
	b := &opts.Config.Build
	flags := cmd.Flags()
	if flags.Changed("compression") {
		b.Compression = opts.Compression
	}
	if flags.Changed("codec") {
		b.Codec = opts.Codec
	}
	if flags.Changed("min-items") {
		b.MinItemsInBlock = opts.MinItems
	}
	if flags.Changed("max-items") {
		b.MaxItemsInBlock = opts.MaxItems
	}
	if flags.Changed("concurrency") {
		b.MaxConcurrentBuilds = opts.Concurrency
	}

	postings := make(map[string]map[string]*roaring.Bitmap)
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}
	for _, in := range inputs {
		if err := readInput(cmd, in, postings); err != nil {
			return WrapExitError(ExitCommandError, "read input", err)
		}
	}

	store, err := opts.store(ctx)
	if err != nil {
		return err
	}
	topts, err := opts.options()
	if err != nil {
		return err
	}

	fields := make(map[string]iter.Seq2[termdict.Posting, error], len(postings))
	terms := 0
	for f, m := range postings {
		fields[f] = termdict.SortedPostings(m)
		terms += len(m)
	}
	id, err := termdict.BuildFields(ctx, store, segment, fields, topts...)
	if err != nil {
		return classify("build", err)
	}
	return opts.output(cmd).Success(buildResult{Segment: segment, ID: id, Fields: len(fields), Terms: terms})
}

func readInput(cmd *cobra.Command, name string, postings map[string]map[string]*roaring.Bitmap) error {
	var r io.Reader
	if name == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	return parsePostings(r, postings)
}

func parsePostings(r io.Reader, postings map[string]map[string]*roaring.Bitmap) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16<<20)
	for line := 1; sc.Scan(); line++ {
		text := sc.Text()
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		parts := strings.SplitN(text, "\t", 3)
		if len(parts) != 3 {
			return fmt.Errorf("line %d: want field<TAB>term<TAB>docs", line)
		}
		field, term := parts[0], parts[1]
		terms, ok := postings[field]
		if !ok {
			terms = make(map[string]*roaring.Bitmap)
			postings[field] = terms
		}
		docs, ok := terms[term]
		if !ok {
			docs = roaring.New()
			terms[term] = docs
		}
		for _, d := range strings.Split(parts[2], ",") {
			id, err := strconv.ParseUint(strings.TrimSpace(d), 10, 32)
			if err != nil {
				return fmt.Errorf("line %d: invalid doc id %q: %w", line, d, err)
			}
			docs.Add(uint32(id))
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	for _, terms := range postings {
		for _, docs := range terms {
			docs.RunOptimize()
		}
	}
	return nil
}
