package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/composer/internal/chatlog"
	"github.com/mohammad-safakhou/composer/internal/knowledge"
	"github.com/mohammad-safakhou/composer/internal/llm"
	"github.com/mohammad-safakhou/composer/internal/memory"
	"github.com/mohammad-safakhou/composer/internal/pagesearch"
	"github.com/mohammad-safakhou/composer/internal/scraper"
	"github.com/mohammad-safakhou/composer/internal/store"
)

// ChatLog is the per-session transcript store used by the chat endpoints.
type ChatLog interface {
	Append(ctx context.Context, session, role, text string) error
	History(ctx context.Context, session string, limit int) ([]chatlog.Turn, error)
	Clear(ctx context.Context, session string) (bool, error)
}

// PageScraper renders a URL into readable text.
type PageScraper interface {
	Fetch(ctx context.Context, url string, cookies []scraper.Cookie) (scraper.Result, error)
}

// Handler owns the composer API routes.
type Handler struct {
	Store        *store.Store
	Chat         ChatLog
	Pipeline     *llm.Pipeline
	Scraper      PageScraper
	Pages        *pagesearch.Index
	Memory       *memory.Client
	RedisPing    func(ctx context.Context) error
	DefaultModel string
	Logger       *log.Logger
}

func (h *Handler) logger() *log.Logger {
	if h.Logger == nil {
		h.Logger = log.New(log.Writer(), "[API] ", log.LstdFlags)
	}
	return h.Logger
}

// Register mounts the API routes.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/health", h.health)

	api := e.Group("/api")
	api.POST("/rewrite", h.rewrite)
	api.POST("/chat", h.chat)
	api.POST("/summarize", h.summarize)
	api.POST("/store-conversation", h.storeConversation)
	api.GET("/conversation-history/:recipient", h.conversationHistory)
	api.DELETE("/conversation-history/:recipient", h.deleteConversationHistory)
	api.POST("/store-profile", h.storeProfile)
	api.DELETE("/chat-history", h.clearChatHistory)
	api.GET("/pages/search", h.searchPages)
	api.GET("/models", h.models)
}

func (h *Handler) model(requested string) string {
	if requested != "" {
		return requested
	}
	if h.DefaultModel != "" {
		return h.DefaultModel
	}
	return "fallback"
}

func (h *Handler) health(c echo.Context) error {
	ctx := c.Request().Context()

	dbOK := false
	if h.Store != nil && h.Store.DB != nil {
		dbOK = h.Store.DB.PingContext(ctx) == nil
	}
	redisOK := false
	if h.RedisPing != nil {
		redisOK = h.RedisPing(ctx) == nil
	}
	memoryOK := false
	if h.Memory != nil {
		memoryOK = h.Memory.Ping(ctx)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":             "healthy",
		"postgres_connected": dbOK,
		"redis_connected":    redisOK,
		"memory_connected":   memoryOK,
		"llm_available":      h.Pipeline.Available(),
	})
}

// ConversationMessage is one live message forwarded by the extension.
type ConversationMessage struct {
	Text       string `json:"text"`
	IsOutgoing bool   `json:"is_outgoing"`
	Timestamp  string `json:"timestamp"`
}

type rewriteRequest struct {
	Platform            string                `json:"platform"`
	UserInput           string                `json:"user_input"`
	ConversationContext []ConversationMessage `json:"conversation_context"`
	Recipient           string                `json:"recipient"`
	Tone                string                `json:"tone"`
	Model               string                `json:"model"`
}

type rewriteResponse struct {
	RewrittenMessage string `json:"rewritten_message"`
	OriginalMessage  string `json:"original_message"`
	ContextUsed      bool   `json:"context_used"`
	RAGContext       string `json:"rag_context,omitempty"`
}

func (h *Handler) rewrite(c echo.Context) error {
	var req rewriteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.UserInput) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_input is required")
	}
	ctx := c.Request().Context()

	var history []knowledge.Message
	if h.Store != nil {
		recs, err := h.Store.History(ctx, req.Recipient, req.Platform, 10)
		if err != nil {
			h.logger().Printf("history lookup failed for %s/%s: %v", req.Platform, req.Recipient, err)
		}
		for _, r := range recs {
			history = append(history, knowledge.Message{Text: r.Text, Outgoing: r.Outgoing})
		}
	}
	var current []knowledge.Message
	for _, m := range req.ConversationContext {
		current = append(current, knowledge.Message{Text: m.Text, Outgoing: m.IsOutgoing})
	}
	ragContext := knowledge.BuildRewriteContext(history, current, req.Recipient)

	rewritten := h.Pipeline.Rewrite(ctx, llm.RewriteInput{
		UserInput: req.UserInput,
		Context:   ragContext,
		Tone:      req.Tone,
		Platform:  req.Platform,
		Model:     h.model(req.Model),
		Recipient: req.Recipient,
	})

	return c.JSON(http.StatusOK, rewriteResponse{
		RewrittenMessage: rewritten,
		OriginalMessage:  req.UserInput,
		ContextUsed:      ragContext != "",
		RAGContext:       ragContext,
	})
}

type chatRequest struct {
	Question   string `json:"question"`
	Platform   string `json:"platform"`
	Recipient  string `json:"recipient"`
	CurrentURL string `json:"current_url"`
	SessionID  string `json:"session_id"`
	Model      string `json:"model"`
}

type chatResponse struct {
	Answer      string `json:"answer"`
	ContextUsed bool   `json:"context_used"`
}

func (h *Handler) chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Question) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question is required")
	}
	ctx := c.Request().Context()
	session := req.SessionID
	if session == "" {
		session = "default"
	}

	var turns []knowledge.ChatTurn
	if h.Chat != nil {
		logged, err := h.Chat.History(ctx, session, 10)
		if err != nil {
			h.logger().Printf("chat history lookup failed for %s: %v", session, err)
		}
		for _, t := range logged {
			turns = append(turns, knowledge.ChatTurn{Role: t.Role, Text: t.Text})
		}
	}

	var page *knowledge.Page
	var pageTitle, pageContent string
	if req.CurrentURL != "" && h.Store != nil {
		rec, ok, err := h.Store.GetPage(ctx, req.CurrentURL)
		if err != nil {
			h.logger().Printf("page lookup failed for %s: %v", req.CurrentURL, err)
		} else if ok {
			page = &knowledge.Page{URL: rec.URL, Title: rec.Title, Content: rec.Content}
			pageTitle, pageContent = rec.Title, rec.Content
		}
	}

	var messages []knowledge.Message
	var profiles []knowledge.ProfileRecord
	if h.Store != nil {
		recs, err := h.Store.RecentMessages(ctx, req.Platform, req.Recipient, 5)
		if err != nil {
			h.logger().Printf("recent messages lookup failed: %v", err)
		}
		for _, r := range recs {
			messages = append(messages, knowledge.Message{Text: r.Text, Outgoing: r.Outgoing})
		}
		snips, err := h.Store.ProfileSnippets(ctx, req.Platform, 5)
		if err != nil {
			h.logger().Printf("profile snippets lookup failed: %v", err)
		}
		for _, p := range snips {
			profiles = append(profiles, knowledge.ProfileRecord{
				URL:      p.URL,
				Platform: p.Platform,
				Content:  p.Content,
				Data:     map[string]string{"name": p.Name, "company": p.Company, "title": p.Title},
			})
		}
	}

	knowledgeContext := knowledge.Build(page, messages, profiles, turns, req.Recipient)

	if h.Chat != nil {
		if err := h.Chat.Append(ctx, session, "user", req.Question); err != nil {
			h.logger().Printf("chat append failed for %s: %v", session, err)
		}
	}

	answer := h.Pipeline.Answer(ctx, llm.AnswerInput{
		Question:         req.Question,
		KnowledgeContext: knowledgeContext,
		Model:            h.model(req.Model),
		SessionID:        session,
		PageTitle:        pageTitle,
		PageContent:      pageContent,
		ChatHistory:      knowledge.RenderChatHistory(turns),
	})

	if h.Chat != nil {
		if err := h.Chat.Append(ctx, session, "assistant", answer); err != nil {
			h.logger().Printf("chat append failed for %s: %v", session, err)
		}
	}

	return c.JSON(http.StatusOK, chatResponse{Answer: answer, ContextUsed: knowledgeContext != ""})
}

type summarizeRequest struct {
	URL     string           `json:"url"`
	Title   string           `json:"title"`
	Cookies []scraper.Cookie `json:"cookies"`
	Model   string           `json:"model"`
}

func (h *Handler) summarize(c echo.Context) error {
	var req summarizeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.URL) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url is required")
	}
	ctx := c.Request().Context()

	res, err := h.Scraper.Fetch(ctx, req.URL, req.Cookies)
	if err != nil {
		scrapeFailures.Inc()
		h.logger().Printf("scrape failed for %s: %v", req.URL, err)
	}
	if res.SignInWall {
		h.logger().Printf("sign-in wall detected for %s; content may be incomplete", req.URL)
	}

	title := req.Title
	if title == "" {
		title = res.Title
	}
	if title == "" {
		title = titleFromContent(res.Content, req.URL)
	}

	if h.Store != nil {
		rec := store.PageRecord{URL: req.URL, Title: title, Content: res.Content}
		if err := h.Store.UpsertPage(ctx, rec); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("store page: %v", err))
		}
		if h.Pages != nil {
			if err := h.Pages.Add(rec); err != nil {
				h.logger().Printf("index page failed for %s: %v", req.URL, err)
			}
		}
	}

	summary := h.Pipeline.Answer(ctx, llm.AnswerInput{
		Question:    "Summarize this page in a clear and concise way. Highlight the main points.",
		Model:       h.model(req.Model),
		SessionID:   "summarizer",
		PageTitle:   title,
		PageContent: res.Content,
	})

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":         "success",
		"url":            req.URL,
		"title":          title,
		"content_length": len(res.Content),
		"summary":        summary,
		"message":        fmt.Sprintf("Page %q stored and summarized", title),
	})
}

// titleFromContent pulls a markdown heading off the top of the content, or
// falls back to the last URL path segment.
func titleFromContent(content, url string) string {
	firstLine := strings.TrimSpace(strings.SplitN(content, "\n", 2)[0])
	if strings.HasPrefix(firstLine, "#") {
		return strings.TrimSpace(strings.TrimLeft(firstLine, "#"))
	}
	parts := strings.Split(strings.TrimRight(url, "/"), "/")
	if last := parts[len(parts)-1]; last != "" {
		return last
	}
	return "Untitled Page"
}

type storeConversationRequest struct {
	Platform   string `json:"platform"`
	Recipient  string `json:"recipient"`
	Message    string `json:"message"`
	IsOutgoing bool   `json:"is_outgoing"`
	Timestamp  string `json:"timestamp"`
}

func (h *Handler) storeConversation(c echo.Context) error {
	var req storeConversationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Recipient == "" || req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "recipient and message are required")
	}

	id, err := h.Store.InsertMessage(c.Request().Context(), store.MessageRecord{
		Platform:  req.Platform,
		Recipient: req.Recipient,
		Text:      req.Message,
		Outgoing:  req.IsOutgoing,
		Source:    store.SourceExtension,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "success",
		"id":      id,
		"message": "Conversation stored",
	})
}

func (h *Handler) conversationHistory(c echo.Context) error {
	recipient := c.Param("recipient")
	platform := c.QueryParam("platform")
	if platform == "" {
		platform = "linkedin"
	}
	limit := 20
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	recs, err := h.Store.History(c.Request().Context(), recipient, platform, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	messages := make([]map[string]interface{}, 0, len(recs))
	for _, r := range recs {
		messages = append(messages, map[string]interface{}{
			"message":     r.Text,
			"is_outgoing": r.Outgoing,
			"timestamp":   r.CreatedAt.UTC().Format(time.RFC3339),
			"platform":    r.Platform,
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"recipient": recipient,
		"messages":  messages,
	})
}

func (h *Handler) deleteConversationHistory(c echo.Context) error {
	recipient := c.Param("recipient")
	platform := c.QueryParam("platform")
	if platform == "" {
		platform = "linkedin"
	}
	n, err := h.Store.DeleteHistory(c.Request().Context(), recipient, platform)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "success",
		"deleted": n,
		"message": "Conversation history deleted",
	})
}

type storeProfileRequest struct {
	Platform    string                 `json:"platform"`
	ProfileURL  string                 `json:"profile_url"`
	ProfileData map[string]interface{} `json:"profile_data"`
	Cookies     []scraper.Cookie       `json:"cookies"`
	Model       string                 `json:"model"`
}

func (h *Handler) storeProfile(c echo.Context) error {
	var req storeProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.ProfileURL) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "profile_url is required")
	}
	ctx := c.Request().Context()

	var markdown, source string
	if len(req.ProfileData) > 0 {
		markdown = profileDataMarkdown(req.ProfileURL, req.ProfileData)
		source = "dom_scraping"
	} else {
		if h.Scraper == nil {
			return echo.NewHTTPError(http.StatusBadRequest, "profile_data is required when scraping is disabled")
		}
		res, err := h.Scraper.Fetch(ctx, req.ProfileURL, req.Cookies)
		if err != nil {
			scrapeFailures.Inc()
			h.logger().Printf("profile scrape failed for %s: %v", req.ProfileURL, err)
		}
		markdown = res.Content
		source = "scraper"
	}

	if err := h.Store.UpsertScrapedProfile(ctx, req.ProfileURL, req.Platform, markdown); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// Structured extraction over the stored markdown.
	title, _ := req.ProfileData["name"].(string)
	if headline, ok := req.ProfileData["headline"].(string); ok && headline != "" {
		if title != "" {
			title = title + " | " + headline
		} else {
			title = headline
		}
	}
	profile := h.Pipeline.ExtractProfile(ctx, llm.ProfileInput{Title: title, Snippet: markdown}, h.model(req.Model))

	rec := store.ProfileRecord{
		URL:      req.ProfileURL,
		Platform: req.Platform,
		Name:     profile.Name,
		Headline: profile.Headline,
		Summary:  profile.Summary,
		Location: profile.Location,
		Company:  profile.Company,
		Title:    profile.Title,
		RawText:  profile.RawText,
	}
	if b, err := json.Marshal(profile.Experiences); err == nil {
		rec.Experiences = b
	}
	if b, err := json.Marshal(profile.Education); err == nil {
		rec.Education = b
	}
	if b, err := json.Marshal(profile.Skills); err == nil {
		rec.Skills = b
	}
	if _, err := h.Store.UpsertProfile(ctx, rec); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":         "success",
		"content_length": len(markdown),
		"name":           profile.Name,
		"source":         source,
		"message":        "Profile stored",
	})
}

// profileDataMarkdown renders extension-scraped DOM fields as markdown, the
// same shape the page scraper produces.
func profileDataMarkdown(url string, data map[string]interface{}) string {
	var b strings.Builder
	b.WriteString("# Profile\n\n")
	fmt.Fprintf(&b, "**URL:** %s\n", url)

	str := func(key string) string {
		v, _ := data[key].(string)
		return v
	}
	if v := str("name"); v != "" {
		fmt.Fprintf(&b, "**Name:** %s\n", v)
	}
	if v := str("headline"); v != "" {
		fmt.Fprintf(&b, "**Headline:** %s\n", v)
	}
	if v := str("location"); v != "" {
		fmt.Fprintf(&b, "**Location:** %s\n", v)
	}
	if v := str("about"); v != "" {
		fmt.Fprintf(&b, "\n## About\n%s\n", v)
	}

	if exps, ok := data["experience"].([]interface{}); ok && len(exps) > 0 {
		b.WriteString("\n## Experience\n")
		for _, e := range exps {
			m, ok := e.(map[string]interface{})
			if !ok {
				continue
			}
			title, _ := m["title"].(string)
			if title == "" {
				title = "Position"
			}
			fmt.Fprintf(&b, "### %s\n", title)
			if company, _ := m["company"].(string); company != "" {
				fmt.Fprintf(&b, "**Company:** %s\n", company)
			}
			if duration, _ := m["duration"].(string); duration != "" {
				fmt.Fprintf(&b, "**Duration:** %s\n", duration)
			}
		}
	}
	if edus, ok := data["education"].([]interface{}); ok && len(edus) > 0 {
		b.WriteString("\n## Education\n")
		for _, e := range edus {
			m, ok := e.(map[string]interface{})
			if !ok {
				continue
			}
			school, _ := m["school"].(string)
			if school == "" {
				school = "School"
			}
			fmt.Fprintf(&b, "### %s\n", school)
			if degree, _ := m["degree"].(string); degree != "" {
				fmt.Fprintf(&b, "**Degree:** %s\n", degree)
			}
			if years, _ := m["years"].(string); years != "" {
				fmt.Fprintf(&b, "**Years:** %s\n", years)
			}
		}
	}
	if skills, ok := data["skills"].([]interface{}); ok && len(skills) > 0 {
		b.WriteString("\n## Skills\n")
		var names []string
		for _, s := range skills {
			if name, ok := s.(string); ok {
				names = append(names, name)
			}
		}
		b.WriteString(strings.Join(names, ", ") + "\n")
	}
	return b.String()
}

func (h *Handler) clearChatHistory(c echo.Context) error {
	session := c.QueryParam("session_id")
	if session == "" {
		session = "default"
	}
	existed, err := h.Chat.Clear(c.Request().Context(), session)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "success",
		"cleared": existed,
		"message": "Chat history cleared",
	})
}

func (h *Handler) searchPages(c echo.Context) error {
	q := c.QueryParam("q")
	if strings.TrimSpace(q) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}
	k := 5
	if v := c.QueryParam("k"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			k = n
		}
	}
	hits, err := h.Pages.Search(q, k)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	results := make([]map[string]interface{}, 0, len(hits))
	for _, hit := range hits {
		content := hit.Content
		if len(content) > 200 {
			content = content[:200]
		}
		results = append(results, map[string]interface{}{
			"url":     hit.URL,
			"title":   hit.Title,
			"snippet": content,
			"score":   hit.Score,
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"results": results})
}

func (h *Handler) models(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"models":  h.Pipeline.AvailableModels(),
		"default": h.model(""),
	})
}
