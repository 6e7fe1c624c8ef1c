// Package taskeval оценивает задачи из to-do списка: может ли Bellhop
// начать работу над ними сам.
//
// Recognizer работает без модели, по ключевым словам, и даёт подсказку
// для UI. Evaluator спрашивает модель и возвращает {canHandle, summary, starterQuery}.
package taskeval

import (
	"regexp"
	"strconv"
	"strings"
)

// ActionType — категория задачи.
type ActionType string

const (
	ActionPricing    ActionType = "pricing"
	ActionOccupancy  ActionType = "occupancy"
	ActionRevenue    ActionType = "revenue"
	ActionCompetitor ActionType = "competitor"
	ActionMarketing  ActionType = "marketing"
)

// Suggestion — распознанная задача.
type Suggestion struct {
	Message    string         `json:"message"`
	Confidence float64        `json:"confidence"`
	ActionType ActionType     `json:"actionType"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Pattern — правило распознавания.
type Pattern struct {
	Keywords   []string
	ActionType ActionType
	Message    string
	Confidence float64
	Extract    func(text string) map[string]any
}

// scoreThreshold — минимальный итоговый балл совпадения.
const scoreThreshold = 1.0

var (
	numberRe  = regexp.MustCompile(`(\d+)%?`)
	monthRe   = regexp.MustCompile(`(?i)(january|february|march|april|may|june|july|august|september|october|november|december)`)
	yearRe    = regexp.MustCompile(`20\d{2}`)
	weekendRe = regexp.MustCompile(`(?i)weekend|saturday|sunday`)
	thisRe    = regexp.MustCompile(`(?i)this\s+(week|month|weekend)`)
	eventRe   = regexp.MustCompile(`(?i)(hackathon|conference|festival|event)`)
	promoRe   = regexp.MustCompile(`(?i)promo|discount|offer`)
)

// DefaultPatterns — правила для задач отеля.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{
			Keywords:   []string{"halloween", "weekend", "price", "rate", "update", "adjust"},
			ActionType: ActionPricing,
			Message:    "I can update your Halloween weekend pricing! Want me to analyze demand and optimize rates?",
			Confidence: 0.95,
			Extract: func(text string) map[string]any {
				return map[string]any{
					"percentage": firstNumber(text),
					"event":      ifContains(text, "halloween"),
					"timeframe":  "weekend",
				}
			},
		},
		{
			Keywords:   []string{"lower", "reduce", "decrease", "price", "rate", "cost", "%", "percent", "construction"},
			ActionType: ActionPricing,
			Message:    "I can help adjust your hotel pricing! Want me to analyze the impact and implement rate changes?",
			Confidence: 0.9,
			Extract: func(text string) map[string]any {
				return map[string]any{
					"percentage": firstNumber(text),
					"month":      month(text),
					"reason":     ifContains(text, "construction"),
				}
			},
		},
		{
			Keywords:   []string{"increase", "raise", "boost", "price", "rate", "weekend", "demand"},
			ActionType: ActionPricing,
			Message:    "I can help increase your rates! Want me to analyze demand patterns and suggest optimal pricing?",
			Confidence: 0.85,
			Extract: func(text string) map[string]any {
				timeframe := "general"
				if strings.Contains(strings.ToLower(text), "weekend") {
					timeframe = "weekend"
				}
				return map[string]any{"percentage": firstNumber(text), "timeframe": timeframe}
			},
		},
		{
			Keywords:   []string{"occupancy", "booking", "sold", "out", "full", "vacancy", "rooms"},
			ActionType: ActionOccupancy,
			Message:    "I can analyze your occupancy data and booking patterns! Want me to generate insights?",
			Confidence: 0.8,
			Extract: func(text string) map[string]any {
				timeframe := "current"
				if weekendRe.MatchString(text) {
					timeframe = "weekend"
				} else if m := thisRe.FindStringSubmatch(text); m != nil {
					timeframe = strings.ToLower(m[1])
				}
				analysis := "current"
				lower := strings.ToLower(text)
				if strings.Contains(lower, "vs") || strings.Contains(lower, "compare") {
					analysis = "comparison"
				}
				return map[string]any{"timeframe": timeframe, "analysis_type": analysis}
			},
		},
		{
			Keywords:   []string{"revenue", "income", "earnings", "vs", "compare", "last year", "month"},
			ActionType: ActionRevenue,
			Message:    "I can generate revenue reports and year-over-year comparisons! Want me to create charts and insights?",
			Confidence: 0.85,
			Extract: func(text string) map[string]any {
				var year any
				if m := yearRe.FindString(text); m != "" {
					year, _ = strconv.Atoi(m)
				}
				return map[string]any{
					"month": month(text),
					"year":  year,
					"comparison": strings.Contains(text, "vs") ||
						strings.Contains(text, "compare") ||
						strings.Contains(text, "last year"),
				}
			},
		},
		{
			Keywords:   []string{"competitor", "competition", "compare", "market", "rates", "pricing"},
			ActionType: ActionCompetitor,
			Message:    "I can analyze competitor rates and market positioning! Want me to generate a competitive analysis?",
			Confidence: 0.8,
		},
		{
			Keywords:   []string{"landing page", "website", "promo", "campaign", "event", "hackathon", "marketing"},
			ActionType: ActionMarketing,
			Message:    "I can create landing pages and marketing campaigns! Want me to generate promotional content?",
			Confidence: 0.9,
			Extract: func(text string) map[string]any {
				var eventType any
				if m := eventRe.FindStringSubmatch(text); m != nil {
					eventType = strings.ToLower(m[1])
				}
				return map[string]any{"event_type": eventType, "has_promo": promoRe.MatchString(text)}
			},
		},
	}
}

// quickActions — быстрые действия UI по типу задачи.
var quickActions = map[ActionType][]string{
	ActionPricing:    {"Show current rates", "Analyze impact", "Apply changes"},
	ActionOccupancy:  {"Current occupancy", "Year-over-year comparison", "Booking trends"},
	ActionRevenue:    {"Generate revenue chart", "Monthly comparison", "Performance insights"},
	ActionCompetitor: {"Competitor rate analysis", "Market positioning", "Pricing recommendations"},
	ActionMarketing:  {"Create landing page", "Generate promo code", "Campaign preview"},
}

// Recognizer сопоставляет текст задачи с правилами.
type Recognizer struct {
	patterns []Pattern
}

// NewRecognizer создаёт распознаватель; без аргументов берутся DefaultPatterns.
func NewRecognizer(patterns ...Pattern) *Recognizer {
	if len(patterns) == 0 {
		patterns = DefaultPatterns()
	}
	return &Recognizer{patterns: patterns}
}

// Analyze возвращает лучшее совпадение или nil.
//
// Балл правила: число найденных ключевых слов, умноженное на 1.5 при двух
// и более совпадениях, затем на Confidence правила. Совпадение засчитывается
// при балле больше 1; при равенстве побеждает правило, объявленное раньше.
func (r *Recognizer) Analyze(text string) *Suggestion {
	lower := strings.ToLower(text)

	var best *Suggestion
	highest := 0.0
	for _, p := range r.patterns {
		matched := 0
		for _, kw := range p.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				matched++
			}
		}

		score := float64(matched)
		if matched > 1 {
			score *= 1.5
		}
		score *= p.Confidence

		if score <= highest || score <= scoreThreshold {
			continue
		}
		highest = score

		best = &Suggestion{
			Message:    p.Message,
			Confidence: min(score/float64(len(p.Keywords)), 1),
			ActionType: p.ActionType,
		}
		if p.Extract != nil {
			best.Parameters = p.Extract(text)
		}
	}
	return best
}

// QuickActions возвращает подсказку и быстрые действия для задачи.
func (r *Recognizer) QuickActions(text string) (*Suggestion, []string) {
	s := r.Analyze(text)
	if s == nil {
		return nil, nil
	}
	return s, quickActions[s.ActionType]
}

func firstNumber(text string) any {
	m := numberRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return n
}

func month(text string) any {
	if m := monthRe.FindStringSubmatch(text); m != nil {
		return strings.ToLower(m[1])
	}
	return nil
}

func ifContains(text, word string) any {
	if strings.Contains(strings.ToLower(text), word) {
		return word
	}
	return nil
}
