package tmdb

// FindResponse is the response from /find/{external_id}.
type FindResponse struct {
	MovieResults []FindMovieResult `json:"movie_results"`
	TVResults    []FindTVResult    `json:"tv_results"`
}

// FindMovieResult is a movie matched by an external ID.
type FindMovieResult struct {
	ID               int    `json:"id"`
	Title            string `json:"title"`
	OriginalTitle    string `json:"original_title"`
	OriginalLanguage string `json:"original_language"`
}

// FindTVResult is a series matched by an external ID.
type FindTVResult struct {
	ID               int      `json:"id"`
	Name             string   `json:"name"`
	OriginalName     string   `json:"original_name"`
	OriginalLanguage string   `json:"original_language"`
	OriginCountry    []string `json:"origin_country"`
}

// SeriesDetails is the subset of /tv/{id} needed for episode numbering.
type SeriesDetails struct {
	ID            int             `json:"id"`
	Name          string          `json:"name"`
	OriginalName  string          `json:"original_name"`
	OriginCountry []string        `json:"origin_country"`
	Seasons       []SeasonSummary `json:"seasons"`
}

// SeasonSummary is one season entry of a series.
type SeasonSummary struct {
	SeasonNumber int    `json:"season_number"`
	EpisodeCount int    `json:"episode_count"`
	Name         string `json:"name"`
	AirDate      string `json:"air_date"`
}

// AlternativeTitle is one regional title.
type AlternativeTitle struct {
	ISO3166 string `json:"iso_3166_1"`
	Title   string `json:"title"`
	Type    string `json:"type"`
}

// MovieAlternativeTitles is the response from /movie/{id}/alternative_titles.
type MovieAlternativeTitles struct {
	ID     int                `json:"id"`
	Titles []AlternativeTitle `json:"titles"`
}

// SeriesAlternativeTitles is the response from /tv/{id}/alternative_titles.
type SeriesAlternativeTitles struct {
	ID      int                `json:"id"`
	Results []AlternativeTitle `json:"results"`
}

// ErrorResponse is an error from the TMDB API.
type ErrorResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
	Success       bool   `json:"success"`
}
