package echoapi

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/darasahq/darasa/core"
)

func TestOrdering_Bind(t *testing.T) {
	allowed := []string{"start_time", "status", "created_at"}

	tests := []struct {
		name  string
		query string
		want  []core.DBOrdering
	}{
		{name: "no param", query: "", want: nil},
		{name: "empty param", query: "ordering=", want: nil},
		{
			name:  "single ascending",
			query: "ordering=start_time",
			want:  []core.DBOrdering{{Field: "start_time", Ascending: true}},
		},
		{
			name:  "mixed directions",
			query: "ordering=-created_at,%20status",
			want: []core.DBOrdering{
				{Field: "created_at", Ascending: false},
				{Field: "status", Ascending: true},
			},
		},
		{name: "unknown field dropped", query: "ordering=hourly_rate", want: nil},
		{
			name:  "sql fragment dropped",
			query: `ordering=(SELECT%20password_hash%20FROM%20%22user%22%20LIMIT%201)`,
			want:  nil,
		},
		{
			name:  "unknown field dropped among valid ones",
			query: "ordering=start_time,password_hash",
			want:  []core.DBOrdering{{Field: "start_time", Ascending: true}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			ctx := echo.New().NewContext(req, httptest.NewRecorder())

			ord := new(Ordering)
			ord.Bind(ctx, allowed...)
			if !reflect.DeepEqual(ord.Orderings, tt.want) {
				t.Errorf("Orderings = %+v; want %+v", ord.Orderings, tt.want)
			}
		})
	}
}
