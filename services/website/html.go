package website

import (
	_ "embed"
	"html/template"
	"time"

	"github.com/flashbots/streamscan/database"
	"github.com/flashbots/streamscan/services/resolver"
)

//go:embed templates/index.html
var htmlContentIndex string

type HTMLData struct {
	Title string

	GeneratedAt    time.Time
	LastUpdateTime string

	Snapshot       *resolver.Snapshot
	Builders       []*BuilderEntry
	Contributions  []*WithdrawalEntry
	TotalWithdrawn string
	TopWithdrawers []*database.TopWithdrawerEntry
}

var funcMap = template.FuncMap{
	"weiToEth":     weiToEth,
	"prettyInt":    prettyInt,
	"shortAddress": shortAddress,
}

func ParseIndexTemplate() (*template.Template, error) {
	return template.New("index.html").Funcs(funcMap).Parse(htmlContentIndex)
}
