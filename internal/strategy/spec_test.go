package strategy

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/pkg/errors"
)

func floatPtr(v float64) *float64 {
	return &v
}

// rsiOversoldSpec builds a minimal valid spec: long when RSI(14) < 30,
// exit at +4% take profit or -2% stop loss.
func rsiOversoldSpec() *Spec {
	return &Spec{
		ID:      "rsi-oversold",
		Name:    "RSI Oversold",
		Version: InitialVersion,
		LongEntry: &EntryRule{
			Direction:     types.DirectionLong,
			GroupOperator: LogicAnd,
			Enabled:       true,
			Groups: []ConditionGroup{
				{
					Operator: LogicAnd,
					Conditions: []Condition{
						{
							ID:       "rsi-low",
							Left:     IndicatorRef{Type: "rsi", Params: map[string]float64{"period": 14}},
							Operator: OpLess,
							Value:    floatPtr(30),
							Enabled:  true,
						},
					},
				},
			},
		},
		ExitRules: []ExitRule{
			{Kind: ExitTakeProfit, Value: 4},
			{Kind: ExitStopLoss, Value: 2},
		},
		Risk: RiskManagement{
			PositionSizePercent: 2,
			MaxPositions:        1,
			MaxDailyTrades:      10,
			MaxDailyLossPercent: 5,
			Leverage:            1,
		},
		PrimaryTimeframe:         types.Timeframe1h,
		OnlyOnePositionPerSymbol: true,
	}
}

type SpecTestSuite struct {
	suite.Suite
}

func TestSpecSuite(t *testing.T) {
	suite.Run(t, new(SpecTestSuite))
}

func (suite *SpecTestSuite) TestValidSpec() {
	suite.NoError(rsiOversoldSpec().Validate())
}

func (suite *SpecTestSuite) TestMissingStopLossRejected() {
	spec := rsiOversoldSpec()
	spec.ExitRules = []ExitRule{{Kind: ExitTakeProfit, Value: 4}}

	err := spec.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMissingStopLoss))
}

func (suite *SpecTestSuite) TestNoEntryRuleRejected() {
	spec := rsiOversoldSpec()
	spec.LongEntry = nil

	err := spec.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidSpec))
}

func (suite *SpecTestSuite) TestLeverageOutOfRangeRejected() {
	spec := rsiOversoldSpec()
	spec.Risk.Leverage = 200

	suite.Error(spec.Validate())
}

func (suite *SpecTestSuite) TestPositionSizeOutOfRangeRejected() {
	spec := rsiOversoldSpec()
	spec.Risk.PositionSizePercent = 0

	suite.Error(spec.Validate())

	spec.Risk.PositionSizePercent = 120
	suite.Error(spec.Validate())
}

func (suite *SpecTestSuite) TestBetweenRequiresBothBounds() {
	spec := rsiOversoldSpec()
	spec.LongEntry.Groups[0].Conditions[0].Operator = OpBetween
	spec.LongEntry.Groups[0].Conditions[0].Value = floatPtr(20)
	spec.LongEntry.Groups[0].Conditions[0].Value2 = nil

	err := spec.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidCondition))

	spec.LongEntry.Groups[0].Conditions[0].Value2 = floatPtr(40)
	suite.NoError(spec.Validate())
}

func (suite *SpecTestSuite) TestRightAndValueMutuallyExclusive() {
	spec := rsiOversoldSpec()
	cond := &spec.LongEntry.Groups[0].Conditions[0]
	cond.Right = &IndicatorRef{Type: "ema", Params: map[string]float64{"period": 50}}

	err := spec.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidCondition))
}

func (suite *SpecTestSuite) TestSignalExitRequiresConditions() {
	spec := rsiOversoldSpec()
	spec.ExitRules = append(spec.ExitRules, ExitRule{Kind: ExitSignal})

	err := spec.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidExitRule))
}

func (suite *SpecTestSuite) TestTimeExitRequiresBars() {
	spec := rsiOversoldSpec()
	spec.ExitRules = append(spec.ExitRules, ExitRule{Kind: ExitTime})

	err := spec.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidExitRule))
}

func (suite *SpecTestSuite) TestRoundTrip() {
	spec := rsiOversoldSpec()
	spec.ShortEntry = &EntryRule{
		Direction:     types.DirectionShort,
		GroupOperator: LogicOr,
		Enabled:       true,
		Groups: []ConditionGroup{
			{
				Operator: LogicOr,
				Conditions: []Condition{
					{
						ID:       "rsi-high",
						Left:     IndicatorRef{Type: "rsi", Params: map[string]float64{"period": 14}},
						Operator: OpGreater,
						Value:    floatPtr(70),
						Weight:   40,
						Enabled:  true,
					},
					{
						ID:       "price-below-ema",
						Left:     IndicatorRef{Type: "close"},
						Operator: OpCrossesBelow,
						Right:    &IndicatorRef{Type: "ema", Params: map[string]float64{"period": 200}},
						Enabled:  true,
					},
				},
			},
		},
	}
	spec.ExitRules = append(spec.ExitRules,
		ExitRule{Kind: ExitTrailingStop, Value: 1.5, Activation: 2},
		ExitRule{Kind: ExitTime, Bars: 48},
	)
	spec.HigherTimeframes = []types.Timeframe{types.Timeframe4h, types.Timeframe1d}

	data, err := spec.Marshal()
	suite.Require().NoError(err)

	parsed, err := ParseSpec(data)
	suite.Require().NoError(err)
	suite.Equal(spec, parsed)
}

func (suite *SpecTestSuite) TestBumpVersion() {
	spec := rsiOversoldSpec()
	suite.Equal("1.0.0", spec.Version)

	suite.NoError(spec.BumpVersion())
	suite.Equal("1.0.1", spec.Version)

	suite.NoError(spec.BumpVersion())
	suite.Equal("1.0.2", spec.Version)
}

func (suite *SpecTestSuite) TestBumpVersionInvalid() {
	spec := rsiOversoldSpec()
	spec.Version = "not-a-version"

	err := spec.BumpVersion()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidVersion))
}

func (suite *SpecTestSuite) TestCompareVersions() {
	cmp, err := CompareVersions("1.0.2", "1.0.10")
	suite.NoError(err)
	suite.Equal(-1, cmp)
}

func (suite *SpecTestSuite) TestStopLossPercent() {
	spec := rsiOversoldSpec()
	suite.Equal(2.0, spec.StopLossPercent())

	tp, ok := spec.TakeProfitPercent()
	suite.True(ok)
	suite.Equal(4.0, tp)
}

func (suite *SpecTestSuite) TestGenerateSchemaJSON() {
	schema, err := GenerateSchemaJSON()
	suite.Require().NoError(err)
	suite.Contains(schema, "strategy-spec")
	suite.Contains(schema, "crosses_above")
}
