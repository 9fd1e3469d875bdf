package aggregate

// DefaultReactionFields maps each platform to the reaction counters carried
// in its raw engagement payload. Field names follow the upstream data pulls;
// adding a platform is a configuration change, not an engine change.
func DefaultReactionFields() map[string][]string {
	return map[string][]string{
		"facebook": {
			"likeCount", "shareCount", "commentCount", "loveCount", "wowCount",
			"hahaCount", "sadCount", "angryCount", "thankfulCount", "careCount",
		},
		"instagram": {
			"favoriteCount", "commentCount",
		},
		"twitter": {
			"retweets", "replies", "likes", "quote_count",
		},
	}
}
