package calendar

// Page описывает одну страницу элементов.
type Page[T any] struct {
	Items      []T // элементы на текущей странице
	Page       int // номер страницы (с 1)
	PageSize   int // количество элементов на странице
	HasNext    bool
	HasPrev    bool
	Total      int // общее количество элементов
	TotalPages int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Paginate возвращает срез items для указанной страницы и метаданные.
// page нумеруется с 1. При некорректных значениях используются дефолты.
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	total := len(items)

	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if page <= 0 {
		page = 1
	}

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}

	end := start + pageSize
	if end > total {
		end = total
	}

	totalPages := total / pageSize
	if total%pageSize > 0 {
		totalPages++
	}

	return Page[T]{
		Items:      items[start:end],
		Page:       page,
		PageSize:   pageSize,
		HasNext:    end < total,
		HasPrev:    page > 1,
		Total:      total,
		TotalPages: totalPages,
	}
}

// PageOf собирает страницу из уже выбранного среза (пагинация на стороне БД).
func PageOf[T any](items []T, page, pageSize, total int) Page[T] {
	totalPages := 0
	if pageSize > 0 {
		totalPages = total / pageSize
		if total%pageSize > 0 {
			totalPages++
		}
	}
	return Page[T]{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		HasNext:    page*pageSize < total,
		HasPrev:    page > 1,
		Total:      total,
		TotalPages: totalPages,
	}
}
