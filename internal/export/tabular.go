package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/iksnae/chatvault/internal"
)

const (
	rowTimeLayout = "2006-01-02 15:04:05"
	sheetName     = "Conversations"
)

// Columns is the header row of every tabular export
var Columns = []string{
	"timestamp", "platform", "model", "conversation_id", "conversation_title",
	"message_number", "role", "content", "content_length", "truncated",
}

// Row is one message flattened together with its conversation metadata
type Row struct {
	Timestamp         string
	Platform          string
	Model             string
	ConversationID    string
	ConversationTitle string
	MessageNumber     int
	Role              string
	Content           string
	ContentLength     int
	Truncated         bool
}

// Rows flattens conversations into one row per message. Content longer than
// truncateLength characters is cut when truncateLength is positive;
// ContentLength always reports the original length.
func Rows(conversations []internal.Conversation, truncateLength int) []Row {
	var rows []Row
	for i := range conversations {
		conv := &conversations[i]
		model := conv.ResolvedModel()
		title := conv.Title
		if title == "" {
			title = "Untitled"
		}

		for n, msg := range conv.Messages {
			row := Row{
				Platform:          conv.PlatformDisplay(),
				Model:             model,
				ConversationID:    conv.ID,
				ConversationTitle: title,
				MessageNumber:     n + 1,
				Role:              string(msg.Role),
				Content:           msg.Content,
				ContentLength:     utf8.RuneCountInString(msg.Content),
			}
			if msg.CreatedAt != nil {
				row.Timestamp = msg.CreatedAt.Format(rowTimeLayout)
			}
			if msg.Model != "" {
				row.Model = msg.Model
			}
			if truncateLength > 0 && row.ContentLength > truncateLength {
				row.Content = truncateRunes(msg.Content, truncateLength)
				row.Truncated = true
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func (r Row) values() []any {
	return []any{
		r.Timestamp, r.Platform, r.Model, r.ConversationID, r.ConversationTitle,
		r.MessageNumber, r.Role, r.Content, r.ContentLength, r.Truncated,
	}
}

func (r Row) strings() []string {
	return []string{
		r.Timestamp, r.Platform, r.Model, r.ConversationID, r.ConversationTitle,
		strconv.Itoa(r.MessageNumber), r.Role, r.Content, strconv.Itoa(r.ContentLength),
		strconv.FormatBool(r.Truncated),
	}
}

// WriteCSV writes rows as CSV with a header line
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(row.strings()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteExcel writes rows to a new workbook at path with a bold header row
func WriteExcel(path string, rows []Row) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	header := make([]any, len(Columns))
	for i, col := range Columns {
		header[i] = excelize.Cell{StyleID: bold, Value: col}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row.values()); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return err
	}
	return f.SaveAs(path)
}
