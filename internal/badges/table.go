package badges

import "github.com/flyvpn/flyvpn-tui/internal/state"

var handAuthored = []Definition{
	{ID: "n1", Name: "First Strike", Description: "Neutralize your first threat.", Icon: IconShield, Color: 0, Rules: []Rule{Total(1)}},
	{ID: "n10", Name: "Threat Hunter", Description: "Neutralize 10 threats.", Icon: IconShield, Color: 1, Rules: []Rule{Total(10)}},
	{ID: "n50", Name: "Elite Operator", Description: "Neutralize 50 threats.", Icon: IconShield, Color: 2, Rules: []Rule{Total(50)}},
	{ID: "n100", Name: "Cyber Guardian", Description: "Neutralize 100 threats.", Icon: IconShield, Color: 3, Rules: []Rule{Total(100)}},
	{ID: "n250", Name: "Digital Sentinel", Description: "Neutralize 250 threats.", Icon: IconShield, Color: 4, Rules: []Rule{Total(250)}},
	{ID: "n500", Name: "Network Overlord", Description: "Neutralize 500 threats.", Icon: IconShield, Color: 5, Rules: []Rule{Total(500)}},
	{ID: "n1000", Name: "Legend of the Web", Description: "Neutralize 1000 threats.", Icon: IconShield, Color: 6, Rules: []Rule{Total(1000)}},

	{ID: "lvl2", Name: "Rookie", Description: "Reach Level 2.", Icon: IconStar, Color: 0, Rules: []Rule{Level(2)}},
	{ID: "lvl5", Name: "Technician", Description: "Reach Level 5.", Icon: IconStar, Color: 1, Rules: []Rule{Level(5)}},
	{ID: "lvl10", Name: "Specialist", Description: "Reach Level 10.", Icon: IconStar, Color: 2, Rules: []Rule{Level(10)}},
	{ID: "lvl20", Name: "Expert", Description: "Reach Level 20.", Icon: IconStar, Color: 3, Rules: []Rule{Level(20)}},
	{ID: "lvl30", Name: "Master", Description: "Reach Level 30.", Icon: IconStar, Color: 4, Rules: []Rule{Level(30)}},
	{ID: "lvl40", Name: "Virtuoso", Description: "Reach Level 40.", Icon: IconStar, Color: 5, Rules: []Rule{Level(40)}},
	{ID: "lvl50", Name: "Grandmaster", Description: "Reach Level 50.", Icon: IconStar, Color: 6, Rules: []Rule{Level(50)}},

	{ID: "mal10", Name: "Bug Squasher", Description: "Neutralize 10 Malware threats.", Icon: IconBug, Color: 6, Rules: []Rule{Category(state.CategoryMalware, 10)}},
	{ID: "mal50", Name: "Exterminator", Description: "Neutralize 50 Malware threats.", Icon: IconBug, Color: 5, Rules: []Rule{Category(state.CategoryMalware, 50)}},
	{ID: "phish10", Name: "Phish Finder", Description: "Neutralize 10 Phishing threats.", Icon: IconEye, Color: 0, Rules: []Rule{Category(state.CategoryPhishing, 10)}},
	{ID: "phish50", Name: "Scam Stopper", Description: "Neutralize 50 Phishing threats.", Icon: IconEye, Color: 1, Rules: []Rule{Category(state.CategoryPhishing, 50)}},
	{ID: "ddos10", Name: "Flood Guard", Description: "Neutralize 10 DDoS threats.", Icon: IconTarget, Color: 2, Rules: []Rule{Category(state.CategoryDDoS, 10)}},
	{ID: "ddos50", Name: "Unbreakable", Description: "Neutralize 50 DDoS threats.", Icon: IconTarget, Color: 3, Rules: []Rule{Category(state.CategoryDDoS, 50)}},
	{ID: "spy10", Name: "Ghost in the Machine", Description: "Neutralize 10 Spyware threats.", Icon: IconSkull, Color: 4, Rules: []Rule{Category(state.CategorySpyware, 10)}},
	{ID: "ad10", Name: "Ad Annihilator", Description: "Neutralize 10 Adware threats.", Icon: IconBolt, Color: 5, Rules: []Rule{Category(state.CategoryAdware, 10)}},
}

// Display names of the threat categories in the slayer series.
var slayerThreats = []string{"Malware", "Phishing", "DDoS", "Spyware", "Adware"}

var slayerCounts = []int{5, 25, 75, 150, 300, 400, 600, 800}

var operatorCounts = []int{2, 3, 4, 5, 15, 20, 30, 40, 60, 70, 80, 90, 125, 150, 175, 200, 300, 400, 600, 750, 800, 900}

var rankLevels = []int{3, 4, 6, 7, 8, 9, 11, 12, 13, 14, 15, 16, 17, 18, 19, 25, 35, 45}

var composites = []Definition{
	{
		ID:          "all5",
		Name:        "Jack of All Trades",
		Description: "Neutralize 5 of each threat type.",
		Icon:        IconGlobe,
		Color:       3,
		Rules: []Rule{
			Category(state.CategoryMalware, 5),
			Category(state.CategoryPhishing, 5),
			Category(state.CategoryDDoS, 5),
			Category(state.CategorySpyware, 5),
			Category(state.CategoryAdware, 5),
		},
	},
	// Needs a time window over neutralizations that stats do not carry.
	{ID: "rapid_response", Name: "Rapid Response", Description: "Neutralize 3 threats in 10 seconds.", Icon: IconBolt, Color: 6},
	{ID: "king", Name: "King of the Hill", Description: "Reach level 50 and neutralize 1000 threats.", Icon: IconCrown, Color: 4, Rules: []Rule{Level(50), Total(1000)}},
}
