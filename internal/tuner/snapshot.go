package tuner

import (
	"strategy-tuner/internal/domain"
)

// CurrentParams snapshots the owner's active parameters under their canonical
// names. The snapshot is the guard's baseline for delta checks and the
// OldParams record of the tuning result.
func CurrentParams(strategy *domain.StrategySettings, risk *domain.RiskSettings) map[string]domain.ParamValue {
	params := make(map[string]domain.ParamValue)
	if strategy != nil {
		params[domain.ParamWindowSize] = domain.IntValue(strategy.WindowSize)
		params[domain.ParamPriceChangeThreshold] = domain.FloatValue(strategy.PriceChangeThresholdPct)
	}
	if risk != nil {
		params[domain.ParamTakeProfitPct] = domain.FloatValue(risk.TakeProfitPct)
		params[domain.ParamStopLossPct] = domain.FloatValue(risk.StopLossPct)
		params[domain.ParamRiskPerTradePct] = domain.FloatValue(risk.RiskPerTradePct)
		params[domain.ParamDailyLossLimitPct] = domain.FloatValue(risk.DailyLossLimitPct)
	}
	return params
}
