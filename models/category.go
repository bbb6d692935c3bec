package models

// ArticleCategory is one of a fixed set of knowledge base sections.
type ArticleCategory string

const (
	CategoryGettingStarted    ArticleCategory = "getting_started"
	CategoryPromptEngineering ArticleCategory = "prompt_engineering"
	CategoryTemplates         ArticleCategory = "templates"
	CategoryWorkflows         ArticleCategory = "workflows"
	CategoryAccountBilling    ArticleCategory = "account_billing"
	CategoryTroubleshooting   ArticleCategory = "troubleshooting"
	CategoryIntegrations      ArticleCategory = "integrations"
	CategoryBestPractices     ArticleCategory = "best_practices"
)

// CategoryDefinition describes a category for navigation.
type CategoryDefinition struct {
	ID          ArticleCategory `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Icon        string          `json:"icon"`
}

// CategoryDefinitions is the ordered list of categories shown to readers.
var CategoryDefinitions = []CategoryDefinition{
	{ID: CategoryGettingStarted, Name: "Getting Started", Description: "First steps with the course and the workspace.", Icon: "rocket_launch"},
	{ID: CategoryPromptEngineering, Name: "Prompt Engineering", Description: "Techniques for writing prompts that get past the plateau.", Icon: "psychology"},
	{ID: CategoryTemplates, Name: "Templates", Description: "Ready-made prompt and workflow templates.", Icon: "description"},
	{ID: CategoryWorkflows, Name: "Workflows", Description: "Chaining AI tools into repeatable processes.", Icon: "account_tree"},
	{ID: CategoryAccountBilling, Name: "Account & Billing", Description: "Subscriptions, invoices and account settings.", Icon: "receipt_long"},
	{ID: CategoryTroubleshooting, Name: "Troubleshooting", Description: "Fixes for common problems.", Icon: "build"},
	{ID: CategoryIntegrations, Name: "Integrations", Description: "Connecting third-party tools.", Icon: "extension"},
	{ID: CategoryBestPractices, Name: "Best Practices", Description: "Guidance from experienced practitioners.", Icon: "verified"},
}

// CategoryInfo is a category with its published article count.
type CategoryInfo struct {
	CategoryDefinition
	ArticleCount int `json:"articleCount"`
}
