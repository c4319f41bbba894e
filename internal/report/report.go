// Package report writes a stored run and its episodes to CSV or XLSX files.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/sankeerth95/rlpy/internal/model"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatAll  = "all"

	episodesSheet = "episodes"
	summarySheet  = "summary"
)

var ErrUnknownFormat = errors.New("unknown export format")

var episodeHeader = []string{
	"index", "seed", "steps", "return", "discounted_return", "terminated", "truncated", "final_state",
}

// Export writes run into dir in the requested format and returns the paths
// it created.
func Export(dir, format string, run model.RunRecord, episodes []model.EpisodeRecord) ([]string, error) {
	if run.ID == "" {
		return nil, errors.New("run id is required")
	}
	var formats []string
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatCSV:
		formats = []string{FormatCSV}
	case FormatXLSX:
		formats = []string{FormatXLSX}
	case FormatAll:
		formats = []string{FormatCSV, FormatXLSX}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	var paths []string
	for _, f := range formats {
		var (
			path string
			err  error
		)
		switch f {
		case FormatCSV:
			path = filepath.Join(dir, run.ID+"_episodes.csv")
			err = WriteEpisodesCSV(path, episodes)
		case FormatXLSX:
			path = filepath.Join(dir, run.ID+".xlsx")
			err = WriteWorkbook(path, run, episodes)
		}
		if err != nil {
			return paths, fmt.Errorf("export %s: %w", f, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func WriteEpisodesCSV(path string, episodes []model.EpisodeRecord) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	writer := csv.NewWriter(file)
	if err := writer.Write(episodeHeader); err != nil {
		return err
	}
	for _, ep := range episodes {
		if err := writer.Write(episodeRow(ep)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func episodeRow(ep model.EpisodeRecord) []string {
	return []string{
		strconv.Itoa(ep.Index),
		strconv.FormatUint(ep.Seed, 10),
		strconv.Itoa(ep.Steps),
		formatFloat(ep.Return),
		formatFloat(ep.DiscountedReturn),
		strconv.FormatBool(ep.Terminated),
		strconv.FormatBool(ep.Truncated),
		FormatState(ep.FinalState),
	}
}

// FormatState joins state values with semicolons so they fit one cell.
func FormatState(s []float64) string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = formatFloat(v)
	}
	return strings.Join(parts, ";")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteWorkbook writes one sheet of episodes and one of run metadata.
func WriteWorkbook(path string, run model.RunRecord, episodes []model.EpisodeRecord) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if _, err := f.NewSheet(episodesSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	header := make([]any, len(episodeHeader))
	for i, h := range episodeHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(episodesSheet, "A1", &header); err != nil {
		return err
	}
	for i, ep := range episodes {
		row := []any{
			ep.Index,
			strconv.FormatUint(ep.Seed, 10),
			ep.Steps,
			ep.Return,
			ep.DiscountedReturn,
			ep.Terminated,
			ep.Truncated,
			FormatState(ep.FinalState),
		}
		if err := f.SetSheetRow(episodesSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
	}

	summary := [][]any{
		{"run_id", run.ID},
		{"domain", run.Domain},
		{"seed", strconv.FormatUint(run.Seed, 10)},
		{"integrator", run.Integrator},
		{"policy", run.Policy},
		{"episodes", run.Episodes},
		{"workers", run.Workers},
		{"max_steps", run.MaxSteps},
		{"created_at", run.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")},
		{"mean_return", run.Summary.MeanReturn},
		{"min_return", run.Summary.MinReturn},
		{"max_return", run.Summary.MaxReturn},
		{"mean_discounted_return", run.Summary.MeanDiscountedReturn},
		{"mean_steps", run.Summary.MeanSteps},
		{"terminal_rate", run.Summary.TerminalRate},
	}
	for i, row := range summary {
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return err
		}
	}

	if idx, err := f.GetSheetIndex(episodesSheet); err == nil {
		f.SetActiveSheet(idx)
	}
	return f.SaveAs(path)
}
