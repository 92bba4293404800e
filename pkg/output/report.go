package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sdejongh/metadiff/pkg/models"
)

// WriteReviewReport writes the review list to a file
// Format can be "human" or "json"
func WriteReviewReport(pair models.EnvironmentPair, entries []models.LedgerEntry, path string, format string) error {
	if len(entries) == 0 {
		// Nothing reviewed - don't create empty file
		return nil
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	switch format {
	case "json":
		err = writeReviewJSON(pair, entries, file)
	default: // "human"
		err = writeReviewHuman(pair, entries, file)
	}
	if err != nil {
		return err
	}
	return file.Close()
}

// writeReviewHuman writes the review list grouped by origin
func writeReviewHuman(pair models.EnvironmentPair, entries []models.LedgerEntry, w io.Writer) error {
	fmt.Fprintf(w, "Review Report\n")
	fmt.Fprintf(w, "=============\n\n")
	fmt.Fprintf(w, "Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "Environment A: %s\n", pair.A)
	fmt.Fprintf(w, "Environment B: %s\n\n", pair.B)

	byOrigin := make(map[models.Origin][]models.LedgerEntry)
	for _, e := range entries {
		byOrigin[e.Origin] = append(byOrigin[e.Origin], e)
	}

	originLabels := []struct {
		origin models.Origin
		label  string
	}{
		{models.OriginPromotion, "Selected for promotion"},
		{models.OriginReview, "Reviewed"},
	}

	for _, o := range originLabels {
		group := byOrigin[o.origin]
		if len(group) == 0 {
			continue
		}

		label := fmt.Sprintf("%s (%d)", o.label, len(group))
		fmt.Fprintf(w, "%s\n", label)
		fmt.Fprintf(w, "%s\n", strings.Repeat("-", len(label)))
		for _, e := range group {
			fmt.Fprintf(w, "  %s", models.ComponentRef(e.Category, e.Entry))
			if e.Verdict != "" {
				fmt.Fprintf(w, "  %s", e.Verdict)
			}
			fmt.Fprintf(w, "\n")
		}
		fmt.Fprintf(w, "\n")
	}

	return nil
}

// writeReviewJSON writes the review list in JSON format
func writeReviewJSON(pair models.EnvironmentPair, entries []models.LedgerEntry, w io.Writer) error {
	output := struct {
		Generated  string               `json:"generated"`
		EnvA       string               `json:"env_a"`
		EnvB       string               `json:"env_b"`
		TotalCount int                  `json:"total_count"`
		Entries    []models.LedgerEntry `json:"entries"`
	}{
		Generated:  time.Now().Format(time.RFC3339),
		EnvA:       pair.A,
		EnvB:       pair.B,
		TotalCount: len(entries),
		Entries:    entries,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
