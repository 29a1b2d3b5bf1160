package app

import (
	"context"
	"errors"

	"procurement-audit/internal/alerting"
	"procurement-audit/internal/audit"
)

var simulatedPurchases = audit.Dataset{
	Columns: []string{"Item", "Vendor", "Price_Paid", "Standard_Price"},
	Records: []audit.RawRecord{
		{"Laptops", "Tech Corp", "50000", "50000"},
		{"Pencils", "Global Supplies", "10", "10"},
		{"Office Chairs", "Family First Ltd", "15000", "2000"},
	},
}

// SimulateAlert sends a notification built from a fixed sample audit so the
// configured channel can be checked end to end.
func (a *App) SimulateAlert(ctx context.Context) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting is not enabled")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no alert channel configured")
	}

	mapping := audit.GuessMapping(simulatedPurchases.Columns)
	res, err := audit.Evaluate(simulatedPurchases, mapping, a.Config.DefaultSensitivity())
	if err != nil {
		return err
	}

	note := alerting.NewNotification("simulated.csv", res, a.Config.Alerting.MaxListed)
	note.AdditionalMsg = "This is a simulated alert."
	return notifier.Notify(ctx, note)
}
