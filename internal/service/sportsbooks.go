package service

// Sportsbook is an entry of the supported sportsbook catalog
type Sportsbook struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	Scrapable bool   `json:"scrapable"`
}

var catalog = []Sportsbook{
	{Key: "draftkings", Name: "DraftKings"},
	{Key: "fanduel", Name: "FanDuel"},
	{Key: "betmgm", Name: "BetMGM"},
	{Key: "caesars", Name: "Caesars"},
	{Key: "pointsbetus", Name: "PointsBet"},
	{Key: "bovada", Name: "Bovada"},
	{Key: "mybookieag", Name: "MyBookie"},
	{Key: "betus", Name: "BetUS"},
}

// Sportsbooks returns the static catalog, flagging books with a registered scraper
func (s *Service) Sportsbooks() []Sportsbook {
	out := make([]Sportsbook, len(catalog))
	for i, b := range catalog {
		_, b.Scrapable = s.scraperByName[b.Key]
		out[i] = b
	}
	return out
}
