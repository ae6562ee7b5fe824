package analysis

import "github.com/kiranshivaraju/quotehunter/pkg/models"

// DemoAnalysis is the fixed record substituted when the vision service cannot
// be reached, so a requester still receives an illustrative quote. It is
// always marked with ProvenanceDemo.
func DemoAnalysis() models.ProductAnalysis {
	return models.ProductAnalysis{
		ProductName: "Anti-Gravity Water Drop Humidifier / 反重力水滴加湿器",
		Category:    "Home Appliances / 家居电器",
		Features: []string{
			"Anti-gravity water drop visual effect",
			"USB powered",
			"Ultra-quiet operation (<30dB)",
			"Automatic power-off protection",
			"7-colour LED ambient light",
		},
		Materials: []string{
			"ABS engineering plastic housing",
			"Food-grade PP water tank",
			"Ultrasonic atomizer disc",
		},
		EstimatedDimensions: "approx. 15cm x 10cm x 10cm",
		TargetAudience:      "Young office workers, lifestyle buyers, gift market",
		SellingPoints: []string{
			"Distinctive visual effect that spreads well on social media",
			"Plug and play",
			"Two in one: humidifier and ambient light",
		},
		EstimatedPriceRange: "$3.50 - $6.00 FOB",
		SourcingDifficulty:  models.DifficultyLow,
		Confidence:          0.92,
		Advisory:            "Small-appliance factories in Ningbo or Zhongshan are a good fit; MOQ is usually 500-1000 units.",
		RawText:             "Demo mode: the vision service was unavailable, this is an illustrative analysis.",
		Provenance:          models.ProvenanceDemo,
	}
}
