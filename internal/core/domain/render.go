package domain

// RenderMode selects cosmetic rendering behaviour.
type RenderMode string

const (
	RenderModeStandard RenderMode = "standard"
	RenderModeDemo     RenderMode = "demo"
)

// RowPadding pads short invoice tables with placeholder rows and caps long ones.
type RowPadding struct {
	Enabled bool
	MinRows int
	MaxRows int
}

// FooterText is the legal boilerplate printed at the bottom of a page.
type FooterText struct {
	PaymentTerms  string
	LatePenalty   string
	LegalMentions string
}

type RenderOptions struct {
	Logo                   *Logo
	InvoicePadding         RowPadding
	VATNotApplicableNotice bool
	Footer                 FooterText
}
