package dialogue

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

type Service struct {
	Price    int `json:"price"`
	Duration int `json:"duration"`
}

// KnowledgeBase is the salon's static description loaded from JSON.
type KnowledgeBase struct {
	AssistantInfo struct {
		Name string `json:"name"`
	} `json:"assistant_info"`

	BusinessInfo struct {
		Name      string `json:"name"`
		OwnerName string `json:"owner_name"`
		Phone     string `json:"phone"`
		Address   string `json:"address"`
	} `json:"business_info"`

	BusinessHours struct {
		MondayToFriday string `json:"monday_to_friday"`
		Saturday       string `json:"saturday"`
		Sunday         string `json:"sunday"`
	} `json:"business_hours"`

	// category -> service key -> details
	Services map[string]map[string]Service `json:"services"`
	Staff    map[string][]string           `json:"staff"`
	Policies map[string]string             `json:"policies"`
}

func LoadKnowledgeBase(path string) (*KnowledgeBase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base: %w", err)
	}

	var kb KnowledgeBase
	if err := json.Unmarshal(data, &kb); err != nil {
		return nil, fmt.Errorf("parse knowledge base %s: %w", path, err)
	}
	if kb.AssistantInfo.Name == "" || kb.BusinessInfo.Name == "" {
		return nil, fmt.Errorf("knowledge base %s: assistant_info.name and business_info.name are required", path)
	}

	return &kb, nil
}

func (kb *KnowledgeBase) Persona() string {
	return kb.AssistantInfo.Name
}

// Context renders the salon facts section of the system prompt. Map keys
// are sorted so the prompt is stable between runs.
func (kb *KnowledgeBase) Context() string {
	var b strings.Builder

	fmt.Fprintf(&b, "SALON INFO:\n")
	fmt.Fprintf(&b, "- Name: %s\n", kb.BusinessInfo.Name)
	fmt.Fprintf(&b, "- Owner: %s\n", kb.BusinessInfo.OwnerName)
	fmt.Fprintf(&b, "- Phone: %s\n", kb.BusinessInfo.Phone)
	fmt.Fprintf(&b, "- Address: %s\n", kb.BusinessInfo.Address)

	fmt.Fprintf(&b, "\nBUSINESS HOURS:\n")
	fmt.Fprintf(&b, "- Weekdays: %s\n", kb.BusinessHours.MondayToFriday)
	fmt.Fprintf(&b, "- Saturday: %s\n", kb.BusinessHours.Saturday)
	fmt.Fprintf(&b, "- Sunday: %s\n", kb.BusinessHours.Sunday)

	fmt.Fprintf(&b, "\nSERVICES:\n")
	for _, cat := range sortedKeys(kb.Services) {
		fmt.Fprintf(&b, "\n%s:\n", strings.ToUpper(cat))
		for _, name := range sortedKeys(kb.Services[cat]) {
			s := kb.Services[cat][name]
			fmt.Fprintf(&b, "  - %s: $%d (%d min)\n", titleWords(name), s.Price, s.Duration)
		}
	}

	fmt.Fprintf(&b, "\nSTAFF:\n")
	for _, role := range sortedKeys(kb.Staff) {
		fmt.Fprintf(&b, "  - %s: %s\n", titleWords(role), strings.Join(kb.Staff[role], ", "))
	}

	fmt.Fprintf(&b, "\nPOLICIES:\n")
	for _, name := range sortedKeys(kb.Policies) {
		fmt.Fprintf(&b, "  - %s: %s\n", titleWords(name), kb.Policies[name])
	}

	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// titleWords turns "mens_haircut" into "Mens Haircut".
func titleWords(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
