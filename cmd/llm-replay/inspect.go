package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	llmreplay "github.com/manishiitg/llm-replay-go"
	"github.com/manishiitg/llm-replay-go/internal/recorder"
)

var InspectCmd = &cobra.Command{
	Use:   "inspect <suite> <test>",
	Short: "Show the recorded calls of one test",
	Long: `Load a recording file (migrating legacy formats in memory) and print
per caller/kind counts, the global sequence range and a preview of every record.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runInspect,
}

var inspectVerbose bool

func init() {
	InspectCmd.Flags().BoolVar(&inspectVerbose, "verbose", false, "Print a preview line for every record")
}

func runInspect(cmd *cobra.Command, args []string) error {
	suite, test, err := splitTestID(args)
	if err != nil {
		return err
	}
	store, err := newStore(newLogger())
	if err != nil {
		return err
	}

	file, err := store.LoadFile(suite, test)
	if err != nil {
		return err
	}
	printSummary(os.Stdout, store.Path(suite, test), file, inspectVerbose)
	return nil
}

type pairSummary struct {
	pair       string
	count      int
	minSeq     int64
	maxSeq     int64
	structured int
}

func summarize(records []llmreplay.CallRecord) []pairSummary {
	byPair := map[string]*pairSummary{}
	for _, r := range records {
		key := r.CallerID + "/" + r.CallKind
		s, ok := byPair[key]
		if !ok {
			s = &pairSummary{pair: key, minSeq: r.GlobalSequence, maxSeq: r.GlobalSequence}
			byPair[key] = s
		}
		s.count++
		if r.GlobalSequence < s.minSeq {
			s.minSeq = r.GlobalSequence
		}
		if r.GlobalSequence > s.maxSeq {
			s.maxSeq = r.GlobalSequence
		}
		if r.ResponseKind == llmreplay.ResponseKindStructured {
			s.structured++
		}
	}

	result := make([]pairSummary, 0, len(byPair))
	for _, s := range byPair {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].pair < result[j].pair })
	return result
}

func printSummary(w io.Writer, path string, file *llmreplay.RecordingFile, verbose bool) {
	fmt.Fprintf(w, "📁 %s\n", path)
	fmt.Fprintf(w, "   suite=%s test=%s version=%s run=%s\n", file.TestSuite, file.TestName, file.Metadata.Version, file.Metadata.RunID)
	fmt.Fprintf(w, "   created=%s updated=%s\n", file.Metadata.CreatedAt.Format("2006-01-02 15:04:05"), file.Metadata.UpdatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "   %d recordings\n\n", len(file.Recordings))

	for _, s := range summarize(file.Recordings) {
		fmt.Fprintf(w, "   %-40s %3d calls  seq %d..%d  (%d structured)\n", s.pair, s.count, s.minSeq, s.maxSeq, s.structured)
	}

	if !verbose {
		return
	}
	fmt.Fprintln(w)
	for _, r := range file.Recordings {
		fmt.Fprintf(w, "   #%-4d %-40s %s  %q\n", r.GlobalSequence, r.ID, recorder.ShortHash(r.PromptHash), recorder.Preview(r.Prompt))
	}
}
