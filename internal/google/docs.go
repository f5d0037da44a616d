package google

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/models"
)

type document struct {
	Title string `json:"title"`
	Body  struct {
		Content []structuralElement `json:"content"`
	} `json:"body"`
}

type structuralElement struct {
	Paragraph *struct {
		Elements []struct {
			TextRun *struct {
				Content string `json:"content"`
			} `json:"textRun"`
		} `json:"elements"`
	} `json:"paragraph"`
}

// ReadDocument returns a document's title and its paragraph text.
func (c *Client) ReadDocument(ctx context.Context, fileID string) (models.DocContentResponse, error) {
	var doc document
	if err := c.do(ctx, "docs_get", http.MethodGet, c.Endpoints.Docs+"/documents/"+url.PathEscape(fileID), nil, "", &doc); err != nil {
		return models.DocContentResponse{}, err
	}
	return models.DocContentResponse{Content: extractText(doc), Title: doc.Title}, nil
}

// extractText concatenates every text run of every paragraph, ending each
// paragraph with a newline. Tables and section breaks are skipped.
func extractText(doc document) string {
	var sb strings.Builder
	for _, el := range doc.Body.Content {
		if el.Paragraph == nil {
			continue
		}
		for _, pe := range el.Paragraph.Elements {
			if pe.TextRun != nil {
				sb.WriteString(pe.TextRun.Content)
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
