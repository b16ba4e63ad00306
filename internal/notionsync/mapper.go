package notionsync

import (
	"time"

	"github.com/jomei/notionapi"

	"github.com/nlozovan/bankfeed/internal/ledger"
)

// TransactionToNotionProperties converts a ledger transaction to Notion
// properties for the export database. The Transaction ID title property is
// the idempotency key used to dedupe across sync runs.
func TransactionToNotionProperties(tx ledger.Transaction) notionapi.Properties {
	props := notionapi.Properties{
		"Transaction ID": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: tx.ID,
					},
				},
			},
		},
		"Amount": notionapi.NumberProperty{
			Number: tx.Amount,
		},
		"Date": notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: func() *notionapi.Date {
					d := notionapi.Date(time.Date(
						tx.Date.Year,
						tx.Date.Month,
						tx.Date.Day,
						0, 0, 0, 0, time.UTC,
					))
					return &d
				}(),
			},
		},
	}

	// Description
	if tx.Name != "" {
		props["Description"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: tx.Name,
					},
				},
			},
		}
	}

	// Currency
	if tx.Currency != "" {
		props["Currency"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: tx.Currency,
			},
		}
	}

	// Account
	if tx.AccountID != "" {
		props["Account"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: tx.AccountID,
					},
				},
			},
		}
	}

	// Status
	if tx.Status != "" {
		props["Status"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: tx.Status,
			},
		}
	}

	// Category
	if tx.Category != nil && *tx.Category != "" {
		props["Category"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: *tx.Category,
			},
		}
	}

	// Fulfilled means both an attachment and a VAT value are recorded,
	// matching the ledger's fulfillment filter.
	props["Fulfilled"] = notionapi.CheckboxProperty{
		Checkbox: tx.AttachmentID != nil && tx.VAT != nil,
	}

	// Has Attachment
	props["Has Attachment"] = notionapi.CheckboxProperty{
		Checkbox: tx.AttachmentID != nil,
	}

	// VAT
	if tx.VAT != nil {
		props["VAT"] = notionapi.NumberProperty{
			Number: *tx.VAT,
		}
	}

	return props
}

// extractTransactionID extracts the transaction ID from a Notion page's
// Transaction ID title property. Returns empty string if not found.
func extractTransactionID(page notionapi.Page) string {
	if prop, ok := page.Properties["Transaction ID"]; ok {
		if title, ok := prop.(*notionapi.TitleProperty); ok {
			if len(title.Title) > 0 {
				return title.Title[0].PlainText
			}
		}
	}
	return ""
}
