package enums

import "fmt"

// Plan is the product tier a user subscribes to.
type Plan string

const (
	PlanNone    Plan = "none"
	PlanStarter Plan = "starter"
	PlanPro     Plan = "pro"
)

var validPlans = []Plan{PlanNone, PlanStarter, PlanPro}

func (p Plan) String() string {
	return string(p)
}

func (p Plan) IsValid() bool {
	for _, candidate := range validPlans {
		if candidate == p {
			return true
		}
	}
	return false
}

func ParsePlan(value string) (Plan, error) {
	for _, candidate := range validPlans {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid plan %q", value)
}
