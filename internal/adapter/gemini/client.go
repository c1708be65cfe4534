package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/almanac-etl-service/internal/domain"
	"google.golang.org/genai"
)

const sourceName = "gemini"

// Config controls the generative commentary client.
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration

	// BaseURL overrides the API endpoint; empty uses the SDK default.
	BaseURL string
}

// Client implements domain.Commentator and domain.FortuneTeller with the
// Gemini API.
type Client struct {
	client      *genai.Client
	model       string
	temperature float32
	timeout     time.Duration
	logger      *slog.Logger
}

// NewClient creates a Gemini commentary client.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	logger.Info("gemini commentary enabled",
		"model", cfg.Model,
		"timeout", cfg.Timeout,
	)

	return &Client{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		logger:      logger,
	}, nil
}

// Comment asks the model for analysis, practice advice and daily advice.
// Rate-limit responses are returned as *domain.RateLimitError; undecodable
// output wraps domain.ErrMalformedCommentary.
func (c *Client) Comment(ctx context.Context, almanac domain.AlmanacRecord, tibetan domain.TibetanDateRecord) (domain.Commentary, error) {
	text, err := c.generate(ctx, buildPrompt(almanac, tibetan), commentarySchema)
	if err != nil {
		return domain.Commentary{}, err
	}
	commentary, err := decodeCommentary(text)
	if err != nil {
		c.logger.Debug("undecodable commentary", "date", almanac.Date, "text", text)
		return domain.Commentary{}, err
	}
	return commentary, nil
}

// Fortune asks the model for a zodiac animal's fortune on the almanac's day.
// Errors follow Comment.
func (c *Client) Fortune(ctx context.Context, zodiac string, almanac domain.AlmanacRecord) (domain.ZodiacFortune, error) {
	text, err := c.generate(ctx, buildFortunePrompt(zodiac, almanac), fortuneSchema)
	if err != nil {
		return domain.ZodiacFortune{}, err
	}
	fortune, err := decodeFortune(text)
	if err != nil {
		c.logger.Debug("undecodable fortune", "date", almanac.Date, "zodiac", zodiac, "text", text)
		return domain.ZodiacFortune{}, err
	}
	return fortune, nil
}

// generate runs one JSON-mode request and returns the response text.
func (c *Client) generate(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(c.temperature),
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		return "", classifyError(err)
	}

	text := responseText(resp)
	if text == "" {
		return "", fmt.Errorf("empty response: %w", domain.ErrMalformedCommentary)
	}
	return text, nil
}

var commentarySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"analysis":       {Type: genai.TypeString, Description: "藏曆日子的意義分析"},
		"practiceAdvice": {Type: genai.TypeString, Description: "當日修行建議"},
		"dailyAdvice":    {Type: genai.TypeString, Description: "綜合黃曆宜忌的當日建議"},
	},
	Required: []string{"analysis", "practiceAdvice", "dailyAdvice"},
}

var fortuneSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"overall":         {Type: genai.TypeString, Description: "整體運勢"},
		"wealth":          {Type: genai.TypeString, Description: "財運"},
		"love":            {Type: genai.TypeString, Description: "感情"},
		"career":          {Type: genai.TypeString, Description: "事業"},
		"score":           {Type: genai.TypeInteger, Description: "0 到 100 的分數"},
		"monthly":         {Type: genai.TypeString, Description: "本月運勢"},
		"elementAnalysis": {Type: genai.TypeString, Description: "五行分析"},
	},
	Required: []string{"overall", "wealth", "love", "career", "score"},
}

func buildPrompt(almanac domain.AlmanacRecord, tibetan domain.TibetanDateRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "分析日期 %s。\n", almanac.Date)
	fmt.Fprintf(&b, "農曆：%s，干支：%s %s %s，生肖：%s。\n",
		almanac.LunarMonthDay, almanac.StemBranch.Year, almanac.StemBranch.Month, almanac.StemBranch.Day, almanac.ZodiacAnimal)
	if almanac.SolarTerm != "" {
		fmt.Fprintf(&b, "節氣：%s。\n", almanac.SolarTerm)
	}
	fmt.Fprintf(&b, "宜：%s。\n", strings.Join(almanac.FavorableActivities, "、"))
	fmt.Fprintf(&b, "忌：%s。\n", strings.Join(almanac.UnfavorableActivities, "、"))
	fmt.Fprintf(&b, "沖煞：沖%s 煞%s。\n", almanac.ClashAnimal, almanac.ClashDirection)
	fmt.Fprintf(&b, "藏曆：%s，%s，星宿：%s，會合：%s。\n",
		tibetan.Label, tibetan.DayName, tibetan.Constellation, tibetan.YogaName)
	if tibetan.Observance != "" {
		fmt.Fprintf(&b, "節日：%s，%s。\n", tibetan.Observance, tibetan.MeritMultiplier)
	}
	b.WriteString("請以繁體中文回覆，欄位為 analysis（藏曆分析）、practiceAdvice（修行建議）、dailyAdvice（今日建議）。\n")
	b.WriteString("回傳純 JSON。")
	return b.String()
}

func buildFortunePrompt(zodiac string, almanac domain.AlmanacRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "運勢：生肖%s，日期 %s。\n", zodiac, almanac.Date)
	fmt.Fprintf(&b, "農曆：%s，干支：%s %s %s。\n",
		almanac.LunarMonthDay, almanac.StemBranch.Year, almanac.StemBranch.Month, almanac.StemBranch.Day)
	fmt.Fprintf(&b, "宜：%s。忌：%s。\n",
		strings.Join(almanac.FavorableActivities, "、"), strings.Join(almanac.UnfavorableActivities, "、"))
	fmt.Fprintf(&b, "沖煞：沖%s 煞%s。\n", almanac.ClashAnimal, almanac.ClashDirection)
	b.WriteString("請以繁體中文回覆，欄位為 overall、wealth、love、career、score（0-100）、monthly、elementAnalysis。\n")
	b.WriteString("回傳純 JSON。")
	return b.String()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var out strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil && part.Text != "" {
				out.WriteString(part.Text)
			}
		}
		if out.Len() > 0 {
			break
		}
	}
	return out.String()
}

var codeFence = strings.NewReplacer("```json", "", "```JSON", "", "```", "")

// stripCodeFence removes markdown code fences some models wrap JSON in.
func stripCodeFence(s string) string {
	return strings.TrimSpace(codeFence.Replace(s))
}

type commentaryPayload struct {
	Analysis       string `json:"analysis"`
	PracticeAdvice string `json:"practiceAdvice"`
	DailyAdvice    string `json:"dailyAdvice"`
}

func decodeCommentary(text string) (domain.Commentary, error) {
	var p commentaryPayload
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &p); err != nil {
		return domain.Commentary{}, fmt.Errorf("%w: %v", domain.ErrMalformedCommentary, err)
	}
	if p.Analysis == "" && p.PracticeAdvice == "" && p.DailyAdvice == "" {
		return domain.Commentary{}, fmt.Errorf("%w: no commentary fields", domain.ErrMalformedCommentary)
	}
	return domain.Commentary{
		Analysis:       strings.TrimSpace(p.Analysis),
		PracticeAdvice: strings.TrimSpace(p.PracticeAdvice),
		DailyAdvice:    strings.TrimSpace(p.DailyAdvice),
		Source:         domain.CommentarySourceModel,
	}, nil
}

type fortunePayload struct {
	Overall         string `json:"overall"`
	Wealth          string `json:"wealth"`
	Love            string `json:"love"`
	Career          string `json:"career"`
	Score           int    `json:"score"`
	Monthly         string `json:"monthly"`
	ElementAnalysis string `json:"elementAnalysis"`
}

func decodeFortune(text string) (domain.ZodiacFortune, error) {
	var p fortunePayload
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &p); err != nil {
		return domain.ZodiacFortune{}, fmt.Errorf("%w: %v", domain.ErrMalformedCommentary, err)
	}
	if p.Overall == "" {
		return domain.ZodiacFortune{}, fmt.Errorf("%w: no overall fortune", domain.ErrMalformedCommentary)
	}
	return domain.ZodiacFortune{
		Overall:         strings.TrimSpace(p.Overall),
		Wealth:          strings.TrimSpace(p.Wealth),
		Love:            strings.TrimSpace(p.Love),
		Career:          strings.TrimSpace(p.Career),
		Score:           p.Score,
		Monthly:         strings.TrimSpace(p.Monthly),
		ElementAnalysis: strings.TrimSpace(p.ElementAnalysis),
		Source:          domain.CommentarySourceModel,
	}, nil
}

// retryDelayRegex matches "Please retry in 45.3s" and "retryDelay: 45s".
var retryDelayRegex = regexp.MustCompile(`(?i)(?:Please retry in |retryDelay[":\s]+)(\d+(?:\.\d+)?)\s*s`)

func isRateLimit(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(msg, "quota")
}

func retryDelay(err error) time.Duration {
	m := retryDelayRegex.FindStringSubmatch(err.Error())
	if len(m) < 2 {
		return 0
	}
	seconds, perr := strconv.ParseFloat(m[1], 64)
	if perr != nil {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

func classifyError(err error) error {
	if isRateLimit(err) {
		return &domain.RateLimitError{Source: sourceName, RetryAfter: retryDelay(err), Err: err}
	}
	return fmt.Errorf("generate content: %w", err)
}
