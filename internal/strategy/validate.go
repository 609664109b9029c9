package strategy

import (
	"github.com/go-playground/validator/v10"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/pkg/errors"
)

var validate = validator.New()

// Validate checks the spec for structural and semantic errors. It must pass
// before a spec is persisted, backtested, or started live.
func (s *Spec) Validate() error {
	if err := validate.Struct(s); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidSpec, "strategy spec failed validation", err)
	}

	if s.LongEntry == nil && s.ShortEntry == nil {
		return errors.New(errors.ErrCodeInvalidSpec, "strategy defines neither a long nor a short entry rule")
	}

	if !s.hasStopLoss() {
		return errors.New(errors.ErrCodeMissingStopLoss, "strategy must define at least one stop_loss exit rule")
	}

	for _, rule := range s.ExitRules {
		if err := validateExitRule(rule); err != nil {
			return err
		}
	}

	if s.LongEntry != nil {
		if err := validateEntryRule(s.LongEntry); err != nil {
			return err
		}
	}

	if s.ShortEntry != nil {
		if err := validateEntryRule(s.ShortEntry); err != nil {
			return err
		}
	}

	return nil
}

func (s *Spec) hasStopLoss() bool {
	for _, rule := range s.ExitRules {
		if rule.Kind == ExitStopLoss {
			return true
		}
	}

	return false
}

func validateExitRule(rule ExitRule) error {
	switch rule.Kind {
	case ExitStopLoss, ExitTakeProfit:
		if rule.Value <= 0 {
			return errors.Newf(errors.ErrCodeInvalidExitRule, "%s exit requires a positive percent value", rule.Kind)
		}
	case ExitTrailingStop:
		if rule.Value <= 0 {
			return errors.New(errors.ErrCodeInvalidExitRule, "trailing_stop exit requires a positive trail percent")
		}
	case ExitTime:
		if rule.Bars <= 0 {
			return errors.New(errors.ErrCodeInvalidExitRule, "time_exit requires a positive bar count")
		}
	case ExitSignal:
		if rule.Signal == nil || len(rule.Signal.Conditions) == 0 {
			return errors.New(errors.ErrCodeInvalidExitRule, "signal_exit requires a non-empty condition group")
		}

		for i := range rule.Signal.Conditions {
			if err := validateCondition(&rule.Signal.Conditions[i]); err != nil {
				return err
			}
		}
	case ExitBreakeven:
		if rule.Activation <= 0 {
			return errors.New(errors.ErrCodeInvalidExitRule, "breakeven exit requires a positive activation percent")
		}
	}

	return nil
}

func validateEntryRule(rule *EntryRule) error {
	for g := range rule.Groups {
		for c := range rule.Groups[g].Conditions {
			if err := validateCondition(&rule.Groups[g].Conditions[c]); err != nil {
				return err
			}
		}
	}

	return nil
}

// validateCondition enforces that exactly one of right/value is meaningful for
// the operator, and that range operators carry both bounds.
func validateCondition(cond *Condition) error {
	if cond.Left.Type == "" {
		return errors.Newf(errors.ErrCodeInvalidCondition, "condition %s has no left operand", cond.ID)
	}

	switch {
	case cond.Operator.NeedsBounds():
		if cond.Value == nil || cond.Value2 == nil {
			return errors.Newf(errors.ErrCodeInvalidCondition,
				"condition %s: operator %s requires value and value2 bounds", cond.ID, cond.Operator)
		}
	case cond.Operator.NeedsRightOperand():
		if cond.Right == nil && cond.Value == nil {
			return errors.Newf(errors.ErrCodeInvalidCondition,
				"condition %s: operator %s requires a right indicator or a constant value", cond.ID, cond.Operator)
		}

		if cond.Right != nil && cond.Value != nil {
			return errors.Newf(errors.ErrCodeInvalidCondition,
				"condition %s: right indicator and constant value are mutually exclusive", cond.ID)
		}
	default:
		// Unary operators ignore the right side entirely.
	}

	known := false

	for _, op := range AllOperators {
		if cond.Operator == op {
			known = true

			break
		}
	}

	if !known {
		return errors.Newf(errors.ErrCodeInvalidCondition, "condition %s: unknown operator %q", cond.ID, cond.Operator)
	}

	return nil
}
