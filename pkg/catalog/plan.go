package catalog

// Money represents a monetary amount in the smallest currency unit.
// For example, $10.99 USD would be Amount: 1099, Currency: "USD".
type Money struct {
	Amount   int64  `yaml:"amount"`   // Amount in smallest currency unit (cents for USD)
	Currency string `yaml:"currency"` // ISO 4217 currency code
}

// BillingInterval represents the billing frequency for a plan.
type BillingInterval string

const (
	BillingIntervalMonthly BillingInterval = "monthly"
	BillingIntervalAnnual  BillingInterval = "annual"
)

// PlanType distinguishes recurring subscriptions from one-time passes.
// One-time passes grant a single billing period of access and never rebill.
type PlanType string

const (
	PlanTypeRecurring PlanType = "recurring"
	PlanTypeOneTime   PlanType = "one_time"
)

// Plan describes a purchasable access plan. ProcessorPlanID is the billing
// processor's identifier for the recurring plan; it is empty for one-time
// plans and for plans not yet registered with the processor.
type Plan struct {
	ID              string          `yaml:"id"`
	Name            string          `yaml:"name"`
	Description     string          `yaml:"description"`
	Price           Money           `yaml:"price"`
	Interval        BillingInterval `yaml:"interval"`
	Type            PlanType        `yaml:"type"`
	ProcessorPlanID string          `yaml:"processor_plan_id"`
	Public          bool            `yaml:"public"` // available for self-service signup
}

// Recurring reports whether the plan is expected to rebill automatically.
func (p Plan) Recurring() bool {
	return p.Type == PlanTypeRecurring
}

func (p Plan) validate() error {
	if p.ID == "" {
		return ErrInvalidPlan
	}
	switch p.Type {
	case PlanTypeRecurring, PlanTypeOneTime:
	default:
		return ErrInvalidPlan
	}
	if p.Type == PlanTypeRecurring {
		switch p.Interval {
		case BillingIntervalMonthly, BillingIntervalAnnual:
		default:
			return ErrInvalidPlan
		}
	}
	if p.Price.Amount < 0 || p.Price.Currency == "" {
		return ErrInvalidPlan
	}
	return nil
}
