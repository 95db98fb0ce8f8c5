package biz

// EconomicsInput 单位经济计算输入
type EconomicsInput struct {
	MRR              int64 // 最小货币单位
	TotalSubscribers int
	ChurnRate        float64 // 百分比 [0, 100]
	TotalAdSpend     int64 // 最小货币单位
	TotalConversions int64
}

// UnitEconomics 单位经济计算结果，货币字段均为最小货币单位
type UnitEconomics struct {
	ARPU          float64
	ARR           int64
	LTV           float64
	CAC           float64
	LTVCACRatio   float64
	PaybackMonths float64
}

// noChurnLifetimeMonths 无流失观测时的生命周期假设
const noChurnLifetimeMonths = 36

// ComputeUnitEconomics 纯函数：由订阅与投放汇总推导单位经济指标
// 所有零分母分支都有显式回退
func ComputeUnitEconomics(in EconomicsInput) UnitEconomics {
	out := UnitEconomics{
		ARR: in.MRR * 12,
	}

	if in.TotalSubscribers > 0 {
		out.ARPU = float64(in.MRR) / float64(in.TotalSubscribers)
	}

	churnDecimal := in.ChurnRate / 100
	if churnDecimal > 0 {
		out.LTV = out.ARPU / churnDecimal
	} else {
		out.LTV = out.ARPU * noChurnLifetimeMonths
	}

	if in.TotalConversions > 0 {
		out.CAC = float64(in.TotalAdSpend) / float64(in.TotalConversions)
	}

	if out.CAC > 0 {
		out.LTVCACRatio = out.LTV / out.CAC
	}

	if out.ARPU > 0 {
		out.PaybackMonths = out.CAC / out.ARPU
	}

	return out
}
