package dispatch

import (
	"fmt"
	"io"

	"github.com/automail/automail/internal/model"
)

// Printer writes one line per resolved recipient and a closing summary
type Printer struct {
	w      io.Writer
	labels map[string]string
	total  int
	done   int
}

// NewPrinter creates a Printer writing to w
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, labels: make(map[string]string)}
}

// Track registers the recipients of the upcoming run so lines can show
// company and address instead of ids
func (p *Printer) Track(recipients []model.Recipient) {
	p.total = len(recipients)
	p.done = 0
	for _, r := range recipients {
		p.labels[r.ID] = fmt.Sprintf("%s <%s>", r.Company, r.Email)
	}
}

// OnStatus implements Observer
func (p *Printer) OnStatus(_ string, s model.SendStatus) {
	if !s.Status.IsTerminal() {
		return
	}
	p.done++

	label, ok := p.labels[s.RecipientID]
	if !ok {
		label = s.RecipientID
	}

	prefix := fmt.Sprintf("[%d/%d]", p.done, p.total)
	if p.total == 0 {
		prefix = fmt.Sprintf("[%d]", p.done)
	}

	if s.Status == model.StatusError {
		fmt.Fprintf(p.w, "%s error  %s: %s\n", prefix, label, s.Error)
		return
	}
	fmt.Fprintf(p.w, "%s sent   %s\n", prefix, label)
}

// OnComplete implements Observer
func (p *Printer) OnComplete(summary Summary) {
	fmt.Fprintf(p.w, "Sent %d of %d\n", summary.SuccessCount, summary.TotalCount)
}
