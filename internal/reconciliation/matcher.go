package reconciliation

import (
	"fmt"
	"strings"
	"time"

	"github.com/fortuna/gridiron/internal/odds"
)

// MaxKickoffDrift is how far apart two kickoff times may be for the same game
const MaxKickoffDrift = 12 * time.Hour

// TeamNameToAbbreviation maps team nicknames and cities to abbreviations
var TeamNameToAbbreviation = map[string]string{
	"cardinals":  "ARI",
	"falcons":    "ATL",
	"ravens":     "BAL",
	"bills":      "BUF",
	"panthers":   "CAR",
	"bears":      "CHI",
	"bengals":    "CIN",
	"browns":     "CLE",
	"cowboys":    "DAL",
	"broncos":    "DEN",
	"lions":      "DET",
	"packers":    "GB",
	"texans":     "HOU",
	"colts":      "IND",
	"jaguars":    "JAX",
	"chiefs":     "KC",
	"raiders":    "LV",
	"chargers":   "LAC",
	"rams":       "LAR",
	"dolphins":   "MIA",
	"vikings":    "MIN",
	"patriots":   "NE",
	"saints":     "NO",
	"giants":     "NYG",
	"jets":       "NYJ",
	"eagles":     "PHI",
	"steelers":   "PIT",
	"49ers":      "SF",
	"niners":     "SF",
	"seahawks":   "SEA",
	"buccaneers": "TB",
	"bucs":       "TB",
	"titans":     "TEN",
	"commanders": "WAS",
}

// GetTeamAbbreviation returns the team abbreviation for a display name such
// as "Kansas City Chiefs", "KC Chiefs" or "Chiefs". Unknown names are
// returned upper-cased with spaces removed.
func GetTeamAbbreviation(teamName string) string {
	nameLower := strings.ToLower(strings.TrimSpace(teamName))

	if abbr, ok := TeamNameToAbbreviation[nameLower]; ok {
		return abbr
	}

	// the nickname is the last word of every NFL team name
	fields := strings.Fields(nameLower)
	if len(fields) > 0 {
		if abbr, ok := TeamNameToAbbreviation[fields[len(fields)-1]]; ok {
			return abbr
		}
	}

	for _, abbr := range TeamNameToAbbreviation {
		if strings.EqualFold(nameLower, abbr) {
			return abbr
		}
	}

	return strings.ToUpper(strings.ReplaceAll(nameLower, " ", ""))
}

// MatchupKey identifies a game by its teams, independent of the source's naming
func MatchupKey(homeTeam, awayTeam string) string {
	return fmt.Sprintf("%s_vs_%s", GetTeamAbbreviation(homeTeam), GetTeamAbbreviation(awayTeam))
}

// SameGame reports whether two games from different sources describe the
// same event: same home and away teams, kickoffs within MaxKickoffDrift.
func SameGame(a, b odds.Game) bool {
	if MatchupKey(a.HomeTeam, a.AwayTeam) != MatchupKey(b.HomeTeam, b.AwayTeam) {
		return false
	}
	if a.CommenceTime.IsZero() || b.CommenceTime.IsZero() {
		return true
	}
	drift := a.CommenceTime.Sub(b.CommenceTime)
	if drift < 0 {
		drift = -drift
	}
	return drift <= MaxKickoffDrift
}

// FindMatchingGame returns the index of the game in games matching g, or -1
func FindMatchingGame(g odds.Game, games []odds.Game) int {
	for i := range games {
		if SameGame(g, games[i]) {
			return i
		}
	}
	return -1
}
