package app

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"studyvoice/internal/model"
	"studyvoice/internal/pkg/jsonx"
	"studyvoice/internal/pkg/pdfextract"
	"studyvoice/internal/plan"
)

// The extraction model is a general-purpose multimodal model that will
// happily invent plausible content when under-constrained. The system
// instruction pins it to text physically present in the document.
const extractSystemPrompt = `You are a document text extractor. Reproduce ONLY text that is physically present in the supplied document. Never paraphrase, summarize, or invent content. Write "[BLANK PAGE]" for a page with no content and "[UNREADABLE]" for a page you cannot read. Preserve the original reading order.`

const extractStructuredPromptFmt = `Extract the text of this document, covering at most the first %d pages.

Respond with a single JSON object and nothing else, in exactly this shape:
{
  "full_text": "the complete extracted text, concatenated in reading order",
  "pages": [
    {"page_number": 1, "text": "text of page 1", "chapter": "chapter or section title if one starts on this page, else omit"}
  ]
}

Both fields are required and must describe the same content; do not put text in one that is missing from the other.`

const extractPlainPromptFmt = `Extract the complete text of this document, covering at most the first %d pages. Respond with the extracted text only: no commentary, no JSON, no Markdown fences.`

type extractionResult struct {
	Text      string
	Pages     model.PageContentList
	PageCount int
}

type structuredExtraction struct {
	FullText string `json:"full_text"`
	Pages    []struct {
		PageNumber int    `json:"page_number"`
		Text       string `json:"text"`
		Chapter    string `json:"chapter"`
	} `json:"pages"`
}

// extract turns the raw file into plain text, and page structure for tiers
// entitled to it. Extraction is the one stage whose failure is fatal to
// the document.
func (p *Pipeline) extract(ctx context.Context, doc *model.Document, fileBytes []byte, limits plan.Limits) (*extractionResult, error) {
	result := &extractionResult{}

	if doc.FileType == model.FileTypePDF {
		if n, err := pdfextract.CountPages(fileBytes); err == nil {
			result.PageCount = n
		}
	}

	// Tiers with page structure get one combined call carrying both the
	// page array and the concatenated text, so the provider is paid once.
	if limits.PageStructure {
		raw, err := p.llm.CompleteWithDocument(ctx, p.cfg.Extract,
			extractSystemPrompt,
			fmt.Sprintf(extractStructuredPromptFmt, limits.MaxPages),
			doc.FileName, fileBytes)
		if err == nil {
			var parsed structuredExtraction
			if jsonErr := jsonx.Decode(raw, &parsed); jsonErr == nil && len(parsed.FullText) >= minExtractChars {
				result.Text = parsed.FullText
				for _, pg := range parsed.Pages {
					result.Pages = append(result.Pages, model.PageContent{
						PageNumber: pg.PageNumber,
						Text:       pg.Text,
						Chapter:    pg.Chapter,
					})
				}
				if result.PageCount == 0 {
					result.PageCount = len(parsed.Pages)
				}
				return result, nil
			}
			p.logger.Warn("structured extraction unusable, retrying plain",
				zap.String("document_id", doc.ID), zap.Int("response_chars", len(raw)))
		} else {
			p.logger.Warn("structured extraction call failed, retrying plain",
				zap.String("document_id", doc.ID), zap.Error(err))
		}
	}

	// Simpler full-text-only call: the primary path for lower tiers, the
	// fallback for everyone else.
	raw, err := p.llm.CompleteWithDocument(ctx, p.cfg.Extract,
		extractSystemPrompt,
		fmt.Sprintf(extractPlainPromptFmt, limits.MaxPages),
		doc.FileName, fileBytes)
	if err != nil {
		p.logger.Warn("plain extraction call failed",
			zap.String("document_id", doc.ID), zap.Error(err))
		raw = ""
	}
	text := strings.TrimSpace(jsonx.StripFences(raw))
	if len(text) >= minExtractChars {
		result.Text = text
		return result, nil
	}

	// Last resort for PDFs: the text layer embedded in the file itself.
	// Scanned documents have none, so this often yields nothing.
	if doc.FileType == model.FileTypePDF {
		if embedded, embErr := pdfextract.ExtractText(fileBytes); embErr == nil {
			embedded = strings.TrimSpace(embedded)
			if len(embedded) >= minExtractChars {
				p.logger.Info("extraction fell back to embedded pdf text",
					zap.String("document_id", doc.ID), zap.Int("chars", len(embedded)))
				result.Text = embedded
				return result, nil
			}
		}
	}

	return nil, ErrNoExtractableText
}
