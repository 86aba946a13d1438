// package formatter provides functions to export ranked album lists to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/desertthunder/albumranker/internal/models"
	"github.com/desertthunder/albumranker/internal/shared"
)

// YearExport bundles one release year's albums in display order.
type YearExport struct {
	Year   string
	Albums []*models.RankedAlbum
}

func rankString(album *models.RankedAlbum) string {
	if album.Rank() == nil {
		return ""
	}
	return strconv.Itoa(*album.Rank() + 1)
}

// ExportToCSV converts a YearExport to CSV format with columns: Rank, Name, Artist, Release Date, Spotify ID, Hidden
func ExportToCSV(export *YearExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Rank", "Name", "Artist", "Release Date", "Spotify ID", "Hidden"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, album := range export.Albums {
		record := []string{
			rankString(album),
			album.Name(),
			album.Artist(),
			album.ReleaseDate().Format("2006-01-02"),
			album.SpotifyID(),
			strconv.FormatBool(album.Hidden()),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a YearExport to Markdown format.
//
// Visible albums form a numbered ranked list; hidden albums land in their
// own section at the bottom.
func ExportToMarkdown(export *YearExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Albums of %s\n\n", export.Year))
	buf.WriteString(fmt.Sprintf("**Albums**: %d\n\n", len(export.Albums)))

	buf.WriteString("## Ranking\n\n")
	position := 0
	var hidden []*models.RankedAlbum
	for _, album := range export.Albums {
		if album.Hidden() {
			hidden = append(hidden, album)
			continue
		}
		position++
		buf.WriteString(fmt.Sprintf("%d. %s - %s [%s]\n", position, album.Artist(), album.Name(), album.ReleaseDate().Format("2006-01-02")))
	}

	if len(hidden) > 0 {
		buf.WriteString("\n## Hidden\n\n")
		for _, album := range hidden {
			buf.WriteString(fmt.Sprintf("- %s - %s\n", album.Artist(), album.Name()))
		}
	}

	return buf.Bytes(), nil
}

// ExportToText converts a YearExport to plain text format
func ExportToText(export *YearExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Year: %s\n", export.Year))
	buf.WriteString(fmt.Sprintf("Albums: %d\n\n", len(export.Albums)))

	position := 0
	for _, album := range export.Albums {
		if album.Hidden() {
			continue
		}
		position++
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", position, album.Artist(), album.Name()))
	}

	return buf.Bytes(), nil
}

type yearMetadata struct {
	Year        string `json:"year"`
	AlbumCount  int    `json:"album_count"`
	GeneratedAt string `json:"generated_at"`
}

// ToMetadataJSON generates a JSON representation of the export metadata (without albums)
func ToMetadataJSON(export *YearExport) ([]byte, error) {
	return shared.MarshalJSON(yearMetadata{
		Year:        export.Year,
		AlbumCount:  len(export.Albums),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	AlbumsFile   string
	MetadataFile string
}

// WriteCSVExport exports a year to CSV format with accompanying metadata JSON file.
//
// Defaults to the year as the base filename & creates {base}_albums.csv and {base}_metadata.json
func WriteCSVExport(export *YearExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = export.Year
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	albumsFile := baseFilepath + "_albums.csv"
	if err := os.WriteFile(albumsFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		AlbumsFile:   albumsFile,
		MetadataFile: metadataFile,
	}, nil
}

// WriteMarkdownExport exports a year to Markdown format in a dedicated directory.
//
// Directory name defaults to the year. Creates {dir}/README.md.
func WriteMarkdownExport(export *YearExport, outputDir string) (string, error) {
	if outputDir == "" {
		outputDir = export.Year
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	mdData, err := ExportToMarkdown(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := fmt.Sprintf("%s/README.md", outputDir)
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}

	return mdFile, nil
}

// WriteTextExport exports a year to plain text format.
//
// Defaults to {year}_albums.txt as the filename.
func WriteTextExport(export *YearExport, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("%s_albums.txt", export.Year)
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(filepath, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return filepath, nil
}
