package catalog

// TMDB genre ids, used to translate list results (which carry only ids)
// into genre names, and preferred genres back into discover filters.
var genreIDsByName = map[string]int{
	"Action":          28,
	"Adventure":       12,
	"Animation":       16,
	"Comedy":          35,
	"Crime":           80,
	"Documentary":     99,
	"Drama":           18,
	"Family":          10751,
	"Fantasy":         14,
	"History":         36,
	"Horror":          27,
	"Music":           10402,
	"Mystery":         9648,
	"Romance":         10749,
	"Science Fiction": 878,
	"TV Movie":        10770,
	"Thriller":        53,
	"War":             10752,
	"Western":         37,
	// TV genres
	"Action & Adventure": 10759,
	"Kids":               10762,
	"News":               10763,
	"Reality":            10764,
	"Sci-Fi & Fantasy":   10765,
	"Soap":               10766,
	"Talk":               10767,
	"War & Politics":     10768,
}

var genreNamesByID = func() map[int]string {
	m := make(map[int]string, len(genreIDsByName))
	for name, id := range genreIDsByName {
		m[id] = name
	}
	return m
}()

// GenreNames maps TMDB genre ids to names, skipping unknown ids.
func GenreNames(ids []int) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := genreNamesByID[id]; ok {
			out = append(out, name)
		}
	}
	return out
}

// GenreIDs maps genre names to TMDB ids, skipping unknown names.
func GenreIDs(names []string) []int {
	out := make([]int, 0, len(names))
	for _, name := range names {
		if id, ok := genreIDsByName[name]; ok {
			out = append(out, id)
		}
	}
	return out
}
