package engine

import (
	"encoding/json"
	"strconv"
)

// TeamRunResult is the output of one run for one team. The timing maps are
// serialized JSON (keys sorted by the encoder) so identical runs produce
// byte-identical results.
type TeamRunResult struct {
	TeamID                  string             `json:"teamId"`
	TeamName                string             `json:"teamName"`
	Strategy                string             `json:"strategy"`
	StrategyParams          map[string]float64 `json:"strategyParams,omitempty"`
	TotalPoints             int                `json:"totalPoints"`
	TilesCompletedCount     int                `json:"tilesCompletedCount"`
	RowReached              int                `json:"rowReached"`
	IsWinner                bool               `json:"isWinner"`
	RowUnlockTimesJSON      string             `json:"rowUnlockTimesJson"`
	TileCompletionTimesJSON string             `json:"tileCompletionTimesJson"`
}

func marshalTimes[K comparable](m map[K]float64, key func(K) string) string {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[key(k)] = v
	}
	data, _ := json.Marshal(out)
	return string(data)
}

func rowKey(r int) string { return strconv.Itoa(r) }
