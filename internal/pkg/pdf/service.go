// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/your-org/trading-backend/internal/config"
)

// Service handles PDF generation
type Service struct {
	config *config.Config
}

// NewService creates a new PDF service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
	}
}

// GenerateStatement renders an order statement into a PDF document
func (s *Service) GenerateStatement(data *StatementData) (*bytes.Buffer, error) {
	data.Company = CompanyInfo{
		Name: s.config.App.CompanyName,
	}
	if data.GeneratedAt == "" {
		data.GeneratedAt = time.Now().Format("January 2, 2006")
	}

	// Generate HTML from template
	htmlContent, err := s.generateHTML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to generate HTML: %w", err)
	}

	// Convert HTML to PDF
	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}

	// Set PDF options
	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.Grayscale.Set(false)

	// Add page from HTML content
	page := wkhtmltopdf.NewPageReader(bytes.NewReader([]byte(htmlContent)))
	page.FooterRight.Set("[page]")
	page.FooterFontSize.Set(9)
	page.Zoom.Set(0.95)

	pdfg.AddPage(page)

	// Create PDF
	err = pdfg.Create()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}

	return bytes.NewBuffer(pdfg.Bytes()), nil
}

// generateHTML generates HTML content from template
func (s *Service) generateHTML(data *StatementData) (string, error) {
	tmpl := template.Must(template.New("statement").Parse(statementTemplate))

	var buf bytes.Buffer
	err := tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// StatementData represents the data passed to the statement template.
// Monetary values are pre-formatted strings in major units.
type StatementData struct {
	StatementNumber string          `json:"statement_number"`
	GeneratedAt     string          `json:"generated_at"`
	OrderID         uint            `json:"order_id"`
	OrderType       string          `json:"order_type"`
	PlacedAt        string          `json:"placed_at"`
	NeedsRecalc     bool            `json:"needs_recalculation"`
	AccountName     string          `json:"account_name"`
	Items           []StatementItem `json:"items"`
	Transactions    []StatementTxn  `json:"transactions"`
	ItemsTotal      string          `json:"items_total"`
	CashTotal       string          `json:"cash_total"`
	Company         CompanyInfo     `json:"company"`
}

// StatementItem is a priced lot or movement line on the statement
type StatementItem struct {
	Label  string `json:"label"`
	UPC    string `json:"upc"`
	Weight int64  `json:"weight"`
	Fixed  bool   `json:"fixed"`
	Price  string `json:"price"`
}

// StatementTxn is a cash ledger line on the statement
type StatementTxn struct {
	Date   string `json:"date"`
	Type   string `json:"type"`
	Notes  string `json:"notes"`
	Amount string `json:"amount"`
}

// CompanyInfo represents company information
type CompanyInfo struct {
	Name string `json:"name"`
}

// Statement HTML template
const statementTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Statement {{.StatementNumber}}</title>
    <style>
        body {
            font-family: Arial, sans-serif;
            margin: 0;
            padding: 20px;
            color: #333;
        }
        .header {
            display: flex;
            justify-content: space-between;
            margin-bottom: 30px;
            border-bottom: 2px solid #eee;
            padding-bottom: 20px;
        }
        .company-info {
            flex: 1;
        }
        .statement-info {
            text-align: right;
            flex: 1;
        }
        .statement-title {
            font-size: 28px;
            font-weight: bold;
            color: #2563eb;
            margin-bottom: 10px;
        }
        .order-details {
            margin-bottom: 30px;
        }
        .order-details table {
            width: 100%;
        }
        .order-details td {
            padding: 5px 0;
            vertical-align: top;
        }
        .order-details .label {
            font-weight: bold;
            width: 150px;
        }
        .section-title {
            font-size: 16px;
            font-weight: bold;
            margin: 20px 0 10px;
            color: #374151;
        }
        .items-table {
            width: 100%;
            border-collapse: collapse;
            margin-bottom: 30px;
        }
        .items-table th,
        .items-table td {
            border: 1px solid #ddd;
            padding: 12px 8px;
            text-align: left;
        }
        .items-table th {
            background-color: #f8f9fa;
            font-weight: bold;
        }
        .items-table .weight-col,
        .items-table .price-col {
            text-align: right;
            width: 100px;
        }
        .totals {
            float: right;
            width: 300px;
        }
        .totals table {
            width: 100%;
            border-collapse: collapse;
        }
        .totals td {
            padding: 8px;
            border-bottom: 1px solid #eee;
        }
        .totals .label {
            text-align: right;
            font-weight: bold;
        }
        .totals .amount {
            text-align: right;
            width: 120px;
        }
        .footer {
            margin-top: 50px;
            padding-top: 20px;
            border-top: 1px solid #eee;
            text-align: center;
            color: #666;
            font-size: 12px;
        }
        .status-badge {
            display: inline-block;
            padding: 4px 8px;
            border-radius: 4px;
            font-size: 12px;
            font-weight: bold;
            text-transform: uppercase;
        }
        .status-clean {
            background-color: #dcfce7;
            color: #166534;
        }
        .status-dirty {
            background-color: #fef3c7;
            color: #92400e;
        }
    </style>
</head>
<body>
    <div class="header">
        <div class="company-info">
            <h1>{{.Company.Name}}</h1>
        </div>
        <div class="statement-info">
            <div class="statement-title">ORDER STATEMENT</div>
            <p><strong>Statement #:</strong> {{.StatementNumber}}</p>
            <p><strong>Generated:</strong> {{.GeneratedAt}}</p>
            <p><strong>Order #:</strong> {{.OrderID}}</p>
        </div>
    </div>

    <div class="order-details">
        <table>
            <tr>
                <td class="label">Order Type:</td>
                <td>{{.OrderType}}</td>
                <td class="label" style="text-align: right;">Allocation:</td>
                <td style="text-align: right;">
                    <span class="status-badge {{if .NeedsRecalc}}status-dirty{{else}}status-clean{{end}}">
                        {{if .NeedsRecalc}}pending{{else}}up to date{{end}}
                    </span>
                </td>
            </tr>
            <tr>
                <td class="label">Placed:</td>
                <td>{{.PlacedAt}}</td>
                <td class="label" style="text-align: right;">Account:</td>
                <td style="text-align: right;">{{if .AccountName}}{{.AccountName}}{{else}}&mdash;{{end}}</td>
            </tr>
        </table>
    </div>

    <div class="section-title">Goods</div>
    <table class="items-table">
        <thead>
            <tr>
                <th>Item</th>
                <th>UPC</th>
                <th class="weight-col">Weight (g)</th>
                <th>Pricing</th>
                <th class="price-col">Price</th>
            </tr>
        </thead>
        <tbody>
            {{range .Items}}
            <tr>
                <td>{{.Label}}</td>
                <td>{{.UPC}}</td>
                <td class="weight-col">{{.Weight}}</td>
                <td>{{if .Fixed}}fixed{{else}}allocated{{end}}</td>
                <td class="price-col">{{.Price}}</td>
            </tr>
            {{end}}
        </tbody>
    </table>

    <div class="section-title">Cash Ledger</div>
    <table class="items-table">
        <thead>
            <tr>
                <th>Date</th>
                <th>Type</th>
                <th>Notes</th>
                <th class="price-col">Amount</th>
            </tr>
        </thead>
        <tbody>
            {{range .Transactions}}
            <tr>
                <td>{{.Date}}</td>
                <td>{{.Type}}</td>
                <td>{{.Notes}}</td>
                <td class="price-col">{{.Amount}}</td>
            </tr>
            {{end}}
        </tbody>
    </table>

    <div class="totals">
        <table>
            <tr>
                <td class="label">Goods Total:</td>
                <td class="amount">{{.ItemsTotal}}</td>
            </tr>
            <tr>
                <td class="label">Cash Total:</td>
                <td class="amount">{{.CashTotal}}</td>
            </tr>
        </table>
    </div>

    <div style="clear: both;"></div>

    <div class="footer">
        <p>Generated by {{.Company.Name}}</p>
    </div>
</body>
</html>
`
