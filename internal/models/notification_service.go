package models

import (
	"fmt"
	"strings"
	"time"
)

type NotificationService interface {
	SendReport(report *Report)
}

// Report summarises a migration run for operators.
type Report struct {
	RunID   string
	Chain   string
	Network string
	Status  string
	Error   string
	Window  SaleWindow
	Units   []*DeployedUnit
}

func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Token sale migration %s on %s/%s: %s\n", r.RunID, r.Chain, r.Network, r.Status)
	if r.Window.End != 0 {
		fmt.Fprintf(&b, "Sale window: %s - %s\n", r.Window.StartTime().Format(time.RFC3339), r.Window.EndTime().Format(time.RFC3339))
	}
	for _, u := range r.Units {
		fmt.Fprintf(&b, "%d. %s at %s (tx %s)\n", u.Step, u.Unit, u.Address, u.TxHash)
	}
	if r.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", r.Error)
	}
	return b.String()
}
