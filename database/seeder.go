package database

import (
	"fmt"
	"strings"
	"time"

	"plateau/logging"
	"plateau/models"
	"plateau/utils"

	lorem "github.com/HandmadeNetwork/golorem"
	"gorm.io/gorm"
)

type seedArticle struct {
	title      string
	summary    string
	lead       string
	category   models.ArticleCategory
	tags       []string
	status     models.ArticleStatus
	difficulty models.Difficulty
	visibility models.ArticleVisibility
	views      int
	ratings    []int
}

var seedArticles = []seedArticle{
	{
		title:      "Welcome to the workspace",
		summary:    "A tour of the dashboard, the course library and where to find help.",
		lead:       "This guide walks you through the workspace. Start with the course library, then open your first template!",
		category:   models.CategoryGettingStarted,
		tags:       []string{"onboarding", "workspace"},
		status:     models.ArticleStatusPublished,
		difficulty: models.DifficultyBeginner,
		visibility: models.VisibilityPublic,
		views:      420,
		ratings:    []int{5, 5, 4},
	},
	{
		title:      "Writing your first prompt",
		summary:    "The anatomy of a prompt: role, context, task and format.",
		lead:       "Every strong prompt names a role, gives context, states the task and asks for a format. Try it with a short email.",
		category:   models.CategoryPromptEngineering,
		tags:       []string{"prompts", "basics"},
		status:     models.ArticleStatusPublished,
		difficulty: models.DifficultyBeginner,
		visibility: models.VisibilityPublic,
		views:      310,
		ratings:    []int{4, 5},
	},
	{
		title:      "Chain-of-thought prompting",
		summary:    "Ask the model to reason step by step before it answers.",
		lead:       "Chain-of-thought prompting asks for intermediate reasoning. It helps with arithmetic and multi-step planning.",
		category:   models.CategoryPromptEngineering,
		tags:       []string{"prompts", "reasoning"},
		status:     models.ArticleStatusPublished,
		difficulty: models.DifficultyAdvanced,
		visibility: models.VisibilityPremium,
		views:      150,
		ratings:    []int{5, 4, 4, 5},
	},
	{
		title:      "Meeting notes template",
		summary:    "Turn a raw transcript into decisions, owners and deadlines.",
		lead:       "Paste the transcript after the template. The output lists decisions, owners and deadlines.",
		category:   models.CategoryTemplates,
		tags:       []string{"templates", "meetings"},
		status:     models.ArticleStatusPublished,
		difficulty: models.DifficultyBeginner,
		visibility: models.VisibilityAuthenticated,
		views:      205,
		ratings:    []int{4},
	},
	{
		title:      "Weekly content workflow",
		summary:    "Plan, draft, edit and schedule a week of posts in one sitting.",
		lead:       "Batch your content. Draft with one prompt, edit with a second and schedule the results.",
		category:   models.CategoryWorkflows,
		tags:       []string{"workflow", "content", "templates"},
		status:     models.ArticleStatusPublished,
		difficulty: models.DifficultyIntermediate,
		visibility: models.VisibilityAuthenticated,
		views:      98,
	},
	{
		title:      "Updating your billing details",
		summary:    "Change the card on file, download invoices and switch plans.",
		lead:       "Open account settings and choose billing. Invoices are available for the last twelve months.",
		category:   models.CategoryAccountBilling,
		tags:       []string{"billing", "invoices"},
		status:     models.ArticleStatusPublished,
		difficulty: models.DifficultyBeginner,
		visibility: models.VisibilityPublic,
		views:      180,
		ratings:    []int{3, 4},
	},
	{
		title:      "Refund policy",
		summary:    "When refunds apply and how to request one.",
		lead:       "Refunds are available within fourteen days of purchase. Contact support with your invoice number.",
		category:   models.CategoryAccountBilling,
		tags:       []string{"billing", "refunds"},
		status:     models.ArticleStatusNeedsUpdate,
		difficulty: models.DifficultyBeginner,
		visibility: models.VisibilityPublic,
		views:      75,
		ratings:    []int{2, 2, 3},
	},
	{
		title:      "Responses are cut off",
		summary:    "What to do when an answer stops halfway.",
		lead:       "Long answers can hit the output limit. Ask the model to continue, or split the task into parts.",
		category:   models.CategoryTroubleshooting,
		tags:       []string{"limits", "errors"},
		status:     models.ArticleStatusPublished,
		difficulty: models.DifficultyIntermediate,
		visibility: models.VisibilityPublic,
		views:      260,
		ratings:    []int{4, 3},
	},
	{
		title:      "Connecting Zapier",
		summary:    "Trigger prompts from forms, spreadsheets and email.",
		lead:       "Create a Zap, pick the trigger and paste your prompt into the action step.",
		category:   models.CategoryIntegrations,
		tags:       []string{"zapier", "automation"},
		status:     models.ArticleStatusPublished,
		difficulty: models.DifficultyIntermediate,
		visibility: models.VisibilityPremium,
		views:      64,
	},
	{
		title:      "Reviewing AI output",
		summary:    "A checklist for catching errors before you publish.",
		lead:       "Check facts, tone and formatting. Never publish numbers you have not verified.",
		category:   models.CategoryBestPractices,
		tags:       []string{"review", "quality"},
		status:     models.ArticleStatusPublished,
		difficulty: models.DifficultyBeginner,
		visibility: models.VisibilityPublic,
		views:      133,
		ratings:    []int{5},
	},
	{
		title:      "Slack integration (beta)",
		summary:    "Run prompts from a Slack channel.",
		lead:       "The Slack app is in beta. Install it from the integrations page.",
		category:   models.CategoryIntegrations,
		tags:       []string{"slack", "automation"},
		status:     models.ArticleStatusDraft,
		difficulty: models.DifficultyIntermediate,
		visibility: models.VisibilityInternal,
	},
	{
		title:      "Legacy prompt library",
		summary:    "The prompt library from the first edition of the course.",
		lead:       "These prompts were written for older models and are kept for reference.",
		category:   models.CategoryTemplates,
		tags:       []string{"templates", "legacy"},
		status:     models.ArticleStatusArchived,
		difficulty: models.DifficultyBeginner,
		visibility: models.VisibilityPublic,
	},
}

// SeedIfEmpty inserts the sample corpus when the articles table is empty and
// returns how many articles were created.
func SeedIfEmpty(db *gorm.DB) (int, error) {
	var count int64
	if err := db.Model(&models.KnowledgeArticle{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	if count > 0 {
		logging.Info().Int64("existing", count).Msg("knowledge base already has articles, skipping seed")
		return 0, nil
	}
	return Seed(db)
}

// Seed inserts the sample corpus. Bodies are the article lead followed by
// filler paragraphs.
func Seed(db *gorm.DB) (int, error) {
	now := time.Now()
	articles := make([]*models.KnowledgeArticle, 0, len(seedArticles))
	for i, s := range seedArticles {
		created := now.Add(-time.Duration(len(seedArticles)-i) * 24 * time.Hour)
		content := buildContent(s.lead)
		a := &models.KnowledgeArticle{
			ID:         utils.GenerateID(),
			Title:      s.title,
			Summary:    s.summary,
			Content:    content,
			Category:   s.category,
			Tags:       s.tags,
			Status:     s.status,
			Visibility: s.visibility,
			Language:   "en",
			Metadata: models.ArticleMetadata{
				Difficulty:  s.difficulty,
				Author:      "Plateau Team",
				ReadingTime: (len(strings.Fields(content)) + 199) / 200,
			},
			Analytics: models.ArticleAnalytics{TotalViews: s.views},
			Feedback:  feedbackFor(s.ratings),
			Version:   1,
			CreatedAt: created,
			UpdatedAt: created,
		}
		if a.Status == models.ArticleStatusPublished || a.Status == models.ArticleStatusNeedsUpdate {
			published := created
			a.PublishedAt = &published
		}
		articles = append(articles, a)
	}

	if err := db.Create(&articles).Error; err != nil {
		return 0, fmt.Errorf("failed to seed articles: %w", err)
	}
	logging.Info().Int("articles", len(articles)).Msg("seeded knowledge base")
	return len(articles), nil
}

func buildContent(lead string) string {
	var b strings.Builder
	b.WriteString(lead)
	for i := 0; i < 3; i++ {
		b.WriteString("\n\n")
		b.WriteString(lorem.Paragraph(2, 4))
	}
	return b.String()
}

func feedbackFor(ratings []int) models.ArticleFeedbackStats {
	var stats models.ArticleFeedbackStats
	for _, r := range ratings {
		n := stats.TotalRatings + 1
		stats.AverageRating = (stats.AverageRating*float64(n-1) + float64(r)) / float64(n)
		stats.TotalRatings = n
		if r >= 4 {
			stats.HelpfulCount++
		} else if r <= 2 {
			stats.NotHelpfulCount++
		}
	}
	return stats
}
