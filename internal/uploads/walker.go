package uploads

import (
	"fmt"
	"os"
	"slices"

	"github.com/boyter/gocodewalker"
	"github.com/rs/zerolog"
)

// Load reads every *.json upload under dir. Files that are not valid uploads
// are skipped with a warning.
func Load(dir string, log zerolog.Logger) ([]Report, error) {
	if stat, err := os.Stat(dir); err != nil || !stat.IsDir() {
		return nil, fmt.Errorf("uploads dir is not a directory: %s", dir)
	}

	fileListQueue := make(chan *gocodewalker.File, 100)

	walker := gocodewalker.NewFileWalker(dir, fileListQueue)
	walker.AllowListExtensions = []string{"json"}
	walker.IgnoreGitIgnore = true
	walker.IgnoreIgnoreFile = true

	errChan := make(chan error, 1)

	go func() {
		err := walker.Start()
		errChan <- err
		close(errChan)
	}()

	reports := make([]Report, 0)
	for file := range fileListQueue {
		report, err := readReportFile(file.Location)
		if err != nil {
			log.Warn().Err(err).Str("path", file.Location).Msg("skipping upload")
			continue
		}
		log.Debug().Int("upload_id", report.UploadID).Str("side", string(report.Side)).Msg("loaded upload")
		reports = append(reports, report)
	}

	if err := <-errChan; err != nil {
		return nil, fmt.Errorf("error walking uploads: %w", err)
	}

	slices.SortFunc(reports, func(a, b Report) int { return a.UploadID - b.UploadID })
	return reports, nil
}

func readReportFile(path string) (Report, error) {
	file, err := os.Open(path)
	if err != nil {
		return Report{}, err
	}
	defer file.Close()
	return ReadReport(file)
}
