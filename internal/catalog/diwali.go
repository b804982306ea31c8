package catalog

// diwali is the festive symbol set used by every room. Order matters: column
// bands are cut from it in sequence.
var diwali = []Symbol{
	{Code: "DY", Meaning: "Diya"},
	{Code: "FC", Meaning: "Firecracker"},
	{Code: "SP", Meaning: "Sparklers"},
	{Code: "LP", Meaning: "Lamp"},
	{Code: "LT", Meaning: "Light"},
	{Code: "RG", Meaning: "Rangoli"},
	{Code: "CL", Meaning: "Color"},
	{Code: "DR", Meaning: "Decoration"},
	{Code: "GL", Meaning: "Gold"},
	{Code: "SR", Meaning: "SiyaRam"},
	{Code: "CB", Meaning: "Celebration"},
	{Code: "CD", Meaning: "Candle"},
	{Code: "NC", Meaning: "New Clothes"},
	{Code: "GR", Meaning: "Garland"},
	{Code: "PT", Meaning: "Pot"},
	{Code: "DN", Meaning: "Dhanteras"},
	{Code: "KS", Meaning: "Kesar"},
	{Code: "GH", Meaning: "Ghee"},
	{Code: "ML", Meaning: "Milk"},
	{Code: "LD", Meaning: "Laddoo"},
	{Code: "BR", Meaning: "Barfi"},
	{Code: "HL", Meaning: "Halwa"},
	{Code: "RS", Meaning: "Rasmalai"},
	{Code: "SW", Meaning: "Sweets"},
	{Code: "CH", Meaning: "Chocolates"},
	{Code: "PK", Meaning: "Pakkwan"},
	{Code: "FT", Meaning: "Festival"},
	{Code: "FM", Meaning: "Family"},
	{Code: "FR", Meaning: "Friends"},
	{Code: "HM", Meaning: "Harmony"},
	{Code: "HP", Meaning: "Happiness"},
	{Code: "PR", Meaning: "Prosperity"},
	{Code: "WL", Meaning: "Wealth"},
	{Code: "SC", Meaning: "Success"},
	{Code: "GF", Meaning: "Gifts"},
	{Code: "BX", Meaning: "Box"},
	{Code: "BL", Meaning: "Blessing"},
	{Code: "WF", Meaning: "Welfare"},
	{Code: "RD", Meaning: "Radiance"},
	{Code: "TK", Meaning: "Tikka"},
	{Code: "CU", Meaning: "Coconut"},
	{Code: "HS", Meaning: "House"},
	{Code: "PD", Meaning: "Pandal"},
	{Code: "RO", Meaning: "Roshni"},
	{Code: "ST", Meaning: "Star"},
	{Code: "DL", Meaning: "Dreamlight"},
	{Code: "AM", Meaning: "Amavasya"},
	{Code: "NT", Meaning: "Night"},
	{Code: "EV", Meaning: "Evening"},
	{Code: "MS", Meaning: "Music"},
	{Code: "DC", Meaning: "Dance"},
	{Code: "MG", Meaning: "Magic"},
	{Code: "MO", Meaning: "Moment"},
	{Code: "TD", Meaning: "Tradition"},
	{Code: "HC", Meaning: "Home Cleaning"},
	{Code: "CK", Meaning: "Cooking"},
	{Code: "FD", Meaning: "Food"},
	{Code: "SK", Meaning: "Sanskar"},
	{Code: "BV", Meaning: "Belief"},
	{Code: "BG", Meaning: "Bhog"},
	{Code: "CS", Meaning: "Celebration Spirit"},
	{Code: "HD", Meaning: "Happy Diwali"},
	{Code: "NY", Meaning: "New Year"},
	{Code: "BN", Meaning: "Banner"},
	{Code: "CR", Meaning: "Craftwork"},
	{Code: "EL", Meaning: "Envelope"},
	{Code: "FG", Meaning: "Fragrance"},
	{Code: "HR", Meaning: "Hues"},
	{Code: "AR", Meaning: "Art"},
	{Code: "NB", Meaning: "Notebook"},
	{Code: "PF", Meaning: "Photo Frame"},
	{Code: "RL", Meaning: "Ribbon Light"},
	{Code: "VB", Meaning: "Vibrance"},
	{Code: "CI", Meaning: "Chakri"},
	{Code: "RB", Meaning: "Rassi Bomb"},
	{Code: "RC", Meaning: "Rocket"},
	{Code: "BT", Meaning: "Batti"},
	{Code: "PA", Meaning: "Pataka"},
	{Code: "OM", Meaning: "Om"},
	{Code: "LA", Meaning: "Lakshmi"},
	{Code: "MT", Meaning: "Mithai"},
	{Code: "DJ", Meaning: "DJ Night"},
	{Code: "TP", Meaning: "Toran"},
	{Code: "DP", Meaning: "Diya Plate"},
	{Code: "SI", Meaning: "Surprise"},
	{Code: "BB", Meaning: "Big Blast"},
	{Code: "GP", Meaning: "Gold Pot"},
	{Code: "BF", Meaning: "Best Friend"},
	{Code: "BP", Meaning: "Bhai Photo"},
	{Code: "CC", Meaning: "Cash Cover"},
	{Code: "KP", Meaning: "Kaju Katli"},
	{Code: "ID", Meaning: "Idol"},
	{Code: "MB", Meaning: "Matka Bomb"},
}
