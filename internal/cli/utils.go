// Package cli provides CLI output and the HTTP client for Kotae.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" or "json".
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputJSON:
		return OutputFormat(s), nil
	}
	return "", fmt.Errorf("unknown output format %q; use text or json", s)
}

// AnswerOutput is what the ask command prints. Structured is only known
// when the question was answered in-process.
type AnswerOutput struct {
	Answer     string                   `json:"answer"`
	Structured *models.StructuredAnswer `json:"structured,omitempty"`
}

// WriteAnswer writes an answer to w in the given format.
func WriteAnswer(w io.Writer, out *AnswerOutput, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, out)
	}
	_, err := fmt.Fprintln(w, out.Answer)
	return err
}

// WriteIngest writes the result of ingesting the configured document.
func WriteIngest(w io.Writer, res *models.IngestResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	_, err := fmt.Fprintf(w, "%s\nchunks:       %d\ndocument_id:  %s\n", res.Message, res.Chunks, res.DocumentID)
	return err
}

// WriteStatus writes collection counts and, when present, the configuration.
func WriteStatus(w io.Writer, report *models.StatusReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	st := report.Status
	if st == nil {
		st = &models.Status{}
	}
	fmt.Fprintf(w, "collection:         %s\n", st.Collection)
	fmt.Fprintf(w, "embedding_model:    %s\n", st.EmbeddingModel)
	fmt.Fprintf(w, "metric:             %s\n", st.Metric)
	fmt.Fprintf(w, "documents:          %d   # distinct ingested files\n", st.Documents)
	fmt.Fprintf(w, "chunks:             %d   # stored chunks, duplicates included\n", st.Chunks)
	fmt.Fprintf(w, "vector_index_size:  %d\n", st.IndexSize)
	if st.DiskUsageBytes > 0 {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # database + keyword index on disk\n", st.DiskUsageBytes)
	}
	if c := st.EmbeddingCache; c != nil {
		fmt.Fprintf(w, "embedding_cache:    %d/%d entries, %d hits, %d misses\n", c.Entries, c.Capacity, c.Hits, c.Misses)
	}
	if len(report.Config) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# configuration")
		keys := make([]string, 0, len(report.Config))
		for k := range report.Config {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "%-20s%v\n", k+":", report.Config[k])
		}
	}
	return nil
}

// WriteLookup writes keyword lookup hits.
func WriteLookup(w io.Writer, res *models.LookupResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintf(w, "\nFound %d chunks for %q\n\n", res.Total, res.Query)
	if res.DidYouMean != "" {
		fmt.Fprintf(w, "Did you mean: %s\n\n", res.DidYouMean)
	}
	for i, hit := range res.Hits {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "[%d] Score: %.4f | ID: %s\n", i+1, hit.Score, hit.ID)
		fmt.Fprintf(w, "\n%s\n\n", TruncateWords(hit.Text, 40))
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
