package appconfig

const (
	KeyNewAgentBonuses      = "new_agent_bonuses"
	KeyReferrerBonuses      = "referrer_bonuses"
	KeyCommissionMinPercent = "commission_min_percent"
	KeyCommissionMaxPercent = "commission_max_percent"
	KeyAvgPayout            = "avg_payout"
	KeyMilestoneThresholds  = "milestone_thresholds"
	KeyInactiveNudgeDays    = "inactive_nudge_days"
	KeyWhatsAppPersonal     = "whatsapp_personal"
	KeyWhatsAppBusiness     = "whatsapp_business"
	KeyRivoJoinURL          = "rivo_join_url"
	KeyClientWhatsAppMsg    = "client_whatsapp_msg"
	KeyReferralShareMsg     = "referral_share_msg"
)

// Defaults served by GET /config for keys missing from app_config.
var Defaults = map[string]any{
	KeyCommissionMinPercent: 0.45,
	KeyCommissionMaxPercent: 0.60,
	KeyAvgPayout:            9000,
	KeyReferrerBonuses:      []any{500, 500, 1000},
	KeyNewAgentBonuses:      []any{1000, 750, 500},
	KeyInactiveNudgeDays:    7,
	KeyClientWhatsAppMsg:    "{agent_name} referred you as a client to Rivo for mortgage assistance. Our team will reach out to you within 30 minutes.",
	KeyReferralShareMsg:     "Hey, I'm using Rivo to earn mortgage commissions. Join: {url}",
	KeyWhatsAppPersonal:     "https://wa.me/971545079577",
	KeyWhatsAppBusiness:     "https://wa.me/971545079577",
	KeyRivoJoinURL:          "https://partner.rivo.ae/join",
}

// SeedEntry initial row written by `rivo-admin seed-config`
type SeedEntry struct {
	Key         string
	Value       string
	Description string
}

var SeedData = []SeedEntry{
	{KeyCommissionMinPercent, "0.45", "Minimum commission percentage"},
	{KeyCommissionMaxPercent, "0.60", "Maximum commission percentage"},
	{KeyAvgPayout, "9000", "Average payout per referred deal in AED"},
	{KeyReferrerBonuses, "[500, 500, 1000]", "Referrer bonus amounts for first 3 disbursals across entire network"},
	{KeyNewAgentBonuses, "[1000, 750, 500]", "New agent bonus amounts for their first 3 deals"},
	{KeyMilestoneThresholds, "[]", "Lifetime disbursal counts that announce a milestone"},
	{KeyInactiveNudgeDays, "7", "Days without a referral before an agent is nudged"},
	{KeyClientWhatsAppMsg, "{agent_name} referred you as a client to Rivo for mortgage assistance. Our team will reach out to you within 30 minutes.", "WhatsApp message sent to referred client"},
	{KeyReferralShareMsg, "Hey, I'm using Rivo to earn mortgage commissions. Join: {url}", "Pre-filled message for agent referral share sheet"},
	{KeyWhatsAppPersonal, "https://wa.me/971545079577", "WhatsApp personal deep link URL"},
	{KeyWhatsAppBusiness, "https://wa.me/971545079577", "WhatsApp Business deep link URL"},
	{KeyRivoJoinURL, "https://partner.rivo.ae/join", "Base URL for agent referral join links"},
}
