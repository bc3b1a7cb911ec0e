package retrieval

// fintechBaseDocs 金融行业的通用合规知识。
var fintechBaseDocs = []Document{
	{
		ID:       "pci_dss",
		Title:    "PCI Data Security Standard",
		Vertical: "fintech",
		Content: "PCI DSS requires encryption of cardholder data at rest and in transit, " +
			"restricted access on a need-to-know basis, network segmentation for the " +
			"cardholder data environment, and quarterly vulnerability scans. Primary " +
			"account numbers must be masked when displayed and never logged in plaintext.",
	},
	{
		ID:       "payment_patterns",
		Title:    "Payment System Design Patterns",
		Vertical: "fintech",
		Content: "Payment processing should use idempotency keys on every transaction " +
			"request, double-entry ledger records for reconciliation, and outbox patterns " +
			"for reliable event publication. Webhook handlers must verify signatures and " +
			"tolerate redelivery.",
	},
	{
		ID:       "security_practices",
		Title:    "Financial Security Best Practices",
		Vertical: "fintech",
		Content: "Financial services code must avoid hardcoded credentials, use parameterized " +
			"queries, enforce TLS for all external calls, and apply rate limiting on " +
			"authentication endpoints. Secrets belong in a vault, not in configuration files.",
	},
}

// fintechRegionDocs 按地区追加的监管知识。
var fintechRegionDocs = map[string][]Document{
	"india": {
		{
			ID:       "rbi_guidelines",
			Title:    "RBI Payment Aggregator Guidelines",
			Vertical: "fintech",
			Content: "RBI guidelines require payment aggregators to store card data only in " +
				"tokenized form, settle merchant funds through escrow accounts, and localize " +
				"payment data storage within India. Two-factor authentication is mandatory " +
				"for card-not-present transactions.",
		},
		{
			ID:       "dpdp_act",
			Title:    "Digital Personal Data Protection Act",
			Vertical: "fintech",
			Content: "DPDP requires verifiable consent before processing personal data, " +
				"purpose limitation, data minimization, and notification of breaches to the " +
				"Data Protection Board. Data fiduciaries must honor erasure requests.",
		},
	},
	"eu": {
		{
			ID:       "gdpr_requirements",
			Title:    "General Data Protection Regulation",
			Vertical: "fintech",
			Content: "GDPR mandates a lawful basis for processing, data subject rights " +
				"including access and erasure, privacy by design, and breach notification " +
				"within 72 hours. Cross-border transfers need adequacy decisions or " +
				"standard contractual clauses.",
		},
		{
			ID:       "psd2_sca",
			Title:    "PSD2 Strong Customer Authentication",
			Vertical: "fintech",
			Content: "PSD2 requires strong customer authentication with two independent " +
				"factors for electronic payments, secure open banking APIs for account " +
				"information and payment initiation, and dynamic linking of authentication " +
				"codes to amount and payee.",
		},
		{
			ID:       "dora_resilience",
			Title:    "Digital Operational Resilience Act",
			Vertical: "fintech",
			Content: "DORA requires ICT risk management frameworks, incident classification " +
				"and reporting, regular resilience testing, and oversight of critical " +
				"third-party technology providers.",
		},
	},
	"uk": {
		{
			ID:       "uk_gdpr_rules",
			Title:    "UK GDPR",
			Vertical: "fintech",
			Content: "UK GDPR mirrors EU data protection principles under ICO supervision: " +
				"lawful basis, data subject rights, breach reporting, and accountability " +
				"through records of processing activities.",
		},
		{
			ID:       "fca_handbook",
			Title:    "FCA Handbook Requirements",
			Vertical: "fintech",
			Content: "FCA rules require treating customers fairly, operational resilience " +
				"with impact tolerances for important business services, and safeguarding " +
				"of client funds in segregated accounts.",
		},
		{
			ID:       "psr_regulations",
			Title:    "Payment Services Regulations",
			Vertical: "fintech",
			Content: "UK Payment Services Regulations govern authorization of payment " +
				"institutions, refund rights for unauthorized transactions, and execution " +
				"time requirements for credit transfers.",
		},
	},
}

// SeedFintechDocs 向提供器预置金融合规知识：通用文档加上指定
// 地区的监管文档。未知地区只预置通用文档。返回写入的文档数。
func SeedFintechDocs(p *MemoryProvider, region string) int {
	added := p.AddDocuments(fintechBaseDocs...)
	if regional, ok := fintechRegionDocs[region]; ok {
		added += p.AddDocuments(regional...)
	}
	return added
}
