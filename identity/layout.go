package identity

// Category names a kind of item in the observed tree.
type Category string

const (
	CategoryFeed       Category = "feed"
	CategorySuggestion Category = "suggestion"
)

// Layout holds the selectors describing where items and their parts live.
type Layout struct {
	FeedItems    string   `yaml:"feed_items"`
	FeedLinks    string   `yaml:"feed_links"`
	PathPrefixes []string `yaml:"path_prefixes"`

	SuggestionItems    string `yaml:"suggestion_items"`
	SuggestionTitles   string `yaml:"suggestion_titles"`
	SuggestionMetadata string `yaml:"suggestion_metadata"`
	SuggestionLinks    string `yaml:"suggestion_links"`
}

// DefaultLayout matches the video site's home feed, search results and
// watch-page sidebar.
func DefaultLayout() Layout {
	return Layout{
		FeedItems:    "ytd-rich-item-renderer, ytd-video-renderer, ytd-grid-video-renderer",
		FeedLinks:    "a[href]",
		PathPrefixes: []string{"/@", "/channel/", "/c/", "/user/"},

		SuggestionItems:    "yt-lockup-view-model",
		SuggestionTitles:   "[title], .yt-lockup-metadata-view-model__title",
		SuggestionMetadata: ".yt-content-metadata-view-model__metadata-text, .yt-core-attributed-string",
		SuggestionLinks:    "a[href]",
	}
}

// WithDefaults fills empty fields from DefaultLayout.
func (l Layout) WithDefaults() Layout {
	def := DefaultLayout()
	if l.FeedItems == "" {
		l.FeedItems = def.FeedItems
	}
	if l.FeedLinks == "" {
		l.FeedLinks = def.FeedLinks
	}
	if len(l.PathPrefixes) == 0 {
		l.PathPrefixes = def.PathPrefixes
	}
	if l.SuggestionItems == "" {
		l.SuggestionItems = def.SuggestionItems
	}
	if l.SuggestionTitles == "" {
		l.SuggestionTitles = def.SuggestionTitles
	}
	if l.SuggestionMetadata == "" {
		l.SuggestionMetadata = def.SuggestionMetadata
	}
	if l.SuggestionLinks == "" {
		l.SuggestionLinks = def.SuggestionLinks
	}
	return l
}

// Strategy pairs an item selector with the extractor for its category.
type Strategy struct {
	Category  Category
	Items     string
	Extractor Extractor
}

// Strategies returns the per-category strategies, feed first.
func (l Layout) Strategies() []Strategy {
	return []Strategy{
		{
			Category:  CategoryFeed,
			Items:     l.FeedItems,
			Extractor: Feed{LinkSelector: l.FeedLinks, PathPrefixes: l.PathPrefixes},
		},
		{
			Category: CategorySuggestion,
			Items:    l.SuggestionItems,
			Extractor: Suggestion{
				TitleSelector:    l.SuggestionTitles,
				MetadataSelector: l.SuggestionMetadata,
				LinkSelector:     l.SuggestionLinks,
			},
		},
	}
}
