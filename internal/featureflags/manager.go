// Package featureflags evaluates switches configured through FEATURE_FLAGS.
package featureflags

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// StrictNameAlnum additionally restricts display names to letters and digits.
const StrictNameAlnum = "strict_name_alnum"

// Manager holds rollout percentages parsed from a key=value list such as
// "strict_name_alnum=on,new_search=25%". on/true/1 mean 100%, off/false/0
// mean 0%. Pairs that do not parse are ignored.
type Manager struct {
	rollout map[string]int
}

// NewManager parses raw once; evaluation never re-reads the string.
func NewManager(raw string) *Manager {
	rollout := make(map[string]int)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key = normalize(key)
		pct, ok := parsePercent(normalize(value))
		if key == "" || !ok {
			continue
		}
		rollout[key] = pct
	}
	return &Manager{rollout: rollout}
}

func parsePercent(value string) (int, bool) {
	switch value {
	case "on", "true", "1":
		return 100, true
	case "off", "false", "0":
		return 0, true
	}
	digits, ok := strings.CutSuffix(value, "%")
	if !ok {
		return 0, false
	}
	pct, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return min(max(pct, 0), 100), true
}

// Enabled reports whether name is on for userID. Partial rollouts pick a
// stable bucket per user; anonymous callers (userID 0) only see flags that
// are fully on.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	pct := m.rollout[normalize(name)]
	switch {
	case pct >= 100:
		return true
	case pct <= 0, userID == 0:
		return false
	}
	return bucket(name, userID) < pct
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name) + ":" + strconv.FormatUint(uint64(userID), 10)))
	return int(h.Sum32() % 100)
}
