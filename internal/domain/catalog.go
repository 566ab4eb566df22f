package domain

// DefaultInstruments returns the listed companies with prices at their base level.
func DefaultInstruments() []Instrument {
	list := []Instrument{
		{ID: "1", Ticker: "SIMBA", Name: "Simba Oy", Sector: SectorMedia, Ownership: OwnershipMixed,
			Description: "Conglomerate holding. Dominates media and brands.",
			Volatility:  VolatilityLow, BasePrice: 72.50, SharesOutstanding: 5_000_000, DividendYield: 4.2, PERatio: 18.5},
		{ID: "2", Ticker: "KNV", Name: "KNV", Sector: SectorInfra, Ownership: OwnershipState,
			Description: "Infrastructure and registers. State-owned backbone.",
			Volatility:  VolatilityLow, BasePrice: 120.00, SharesOutstanding: 3_000_000, DividendYield: 2.1, PERatio: 25.0},
		{ID: "3", Ticker: "KNT", Name: "KNT (Turvallisuus)", Sector: SectorSecurity, Ownership: OwnershipState,
			Description: "National security and defense. Stable government contracts.",
			Volatility:  VolatilityLow, BasePrice: 95.20, SharesOutstanding: 2_000_000, DividendYield: 1.5, PERatio: 22.1},
		{ID: "4", Ticker: "METAL", Name: "Kirkkimetalli Oy", Sector: SectorIndustry, Ownership: OwnershipPrivate,
			Description: "Heavy metal industry. Parts for infra and defense.",
			Volatility:  VolatilityMedium, BasePrice: 45.80, SharesOutstanding: 4_000_000, DividendYield: 3.5, PERatio: 12.4},
		{ID: "5", Ticker: "KNET", Name: "KirkNet", Sector: SectorTech, Ownership: OwnershipPrivate,
			Description: "Internet and network infrastructure provider.",
			Volatility:  VolatilityMedium, BasePrice: 210.50, SharesOutstanding: 1_500_000, DividendYield: 0.5, PERatio: 45.2},
		{ID: "6", Ticker: "MATKA", Name: "Matkahuolto", Sector: SectorLogistics, Ownership: OwnershipMixed,
			Description: "Public transport and logistics. Partially state-owned.",
			Volatility:  VolatilityLow, BasePrice: 28.40, SharesOutstanding: 3_500_000, DividendYield: 5.0, PERatio: 10.8},
		{ID: "7", Ticker: "AGRO", Name: "Maatalousosuus", Sector: SectorAgriculture, Ownership: OwnershipMixed,
			Description: "Primary food production cooperative.",
			Volatility:  VolatilityLow, BasePrice: 15.10, SharesOutstanding: 8_000_000, DividendYield: 6.2, PERatio: 9.5},
		{ID: "8", Ticker: "REALT", Name: "Kiinteistövälittäjät Oy", Sector: SectorRealEstate, Ownership: OwnershipPrivate,
			Description: "Major housing market player.",
			Volatility:  VolatilityMedium, BasePrice: 88.90, SharesOutstanding: 1_200_000, DividendYield: 3.8, PERatio: 15.0},
		{ID: "9", Ticker: "MERLX", Name: "Merlex Rail Service", Sector: SectorLogistics, Ownership: OwnershipPrivate,
			Description: "Underground metro and rail system.",
			Volatility:  VolatilityHigh, BasePrice: 14.20, SharesOutstanding: 6_000_000, DividendYield: 0.5, PERatio: 18.0},
		{ID: "10", Ticker: "COBALT", Name: "CobaltCore", Sector: SectorMining, Ownership: OwnershipPrivate,
			Description: "Strategic mining operations.",
			Volatility:  VolatilityHigh, BasePrice: 55.30, SharesOutstanding: 2_500_000, DividendYield: 1.2, PERatio: 14.0},
		{ID: "11", Ticker: "ASEL", Name: "ASEL Market", Sector: SectorLogistics, Ownership: OwnershipPrivate,
			Description: "Retail chain giant.",
			Volatility:  VolatilityMedium, BasePrice: 32.10, SharesOutstanding: 4_000_000, DividendYield: 3.0, PERatio: 13.0},
		{ID: "12", Ticker: "NDATA", Name: "NorthData Analytics", Sector: SectorTech, Ownership: OwnershipPrivate,
			Description: "Advanced AI and data processing.",
			Volatility:  VolatilityHigh, BasePrice: 145.00, SharesOutstanding: 800_000, DividendYield: 0, PERatio: 55.0},
		{ID: "13", Ticker: "GKE", Name: "GK Energia", Sector: SectorEnergy, Ownership: OwnershipState,
			Description: "Electricity and district heating provider.",
			Volatility:  VolatilityLow, BasePrice: 65.40, SharesOutstanding: 2_200_000, DividendYield: 5.5, PERatio: 11.0},
		{ID: "15", Ticker: "CHEM", Name: "BlueBarrel Chemicals", Sector: SectorIndustry, Ownership: OwnershipPrivate,
			Description: "Industrial chemicals and processing.",
			Volatility:  VolatilityMedium, BasePrice: 89.00, SharesOutstanding: 1_100_000, DividendYield: 2.5, PERatio: 19.0},
		{ID: "16", Ticker: "VOID", Name: "K-Void Robotics", Sector: SectorTech, Ownership: OwnershipPrivate,
			Description: "Industrial automation and robotics.",
			Volatility:  VolatilityHigh, BasePrice: 230.00, SharesOutstanding: 500_000, DividendYield: 0, PERatio: 60.0},
		{ID: "17", Ticker: "H2O", Name: "PureWater Oy", Sector: SectorInfra, Ownership: OwnershipState,
			Description: "Water reserves and purification.",
			Volatility:  VolatilityLow, BasePrice: 40.00, SharesOutstanding: 5_000_000, DividendYield: 4.0, PERatio: 14.0},
	}

	for i := range list {
		list[i].CurrentPrice = list[i].BasePrice
	}

	return list
}
