package backendsvc

import (
	"github.com/trezcool/schulportal/core"
	"github.com/trezcool/schulportal/core/bulk"
	"github.com/trezcool/schulportal/core/search"
	"github.com/trezcool/schulportal/core/session"
	"github.com/trezcool/schulportal/core/workflow"
)

// NewSessionFactory returns a session.Factory whose sessions talk to the backend with the admin's latest token.
func NewSessionFactory(client *Client, conf *core.Config, logger core.Logger) session.Factory {
	return func(token string, admin core.Admin) *session.Session {
		bearer := NewToken(token)
		backend := client.WithBearer(bearer)
		return &session.Session{
			OnToken: bearer.Set,
			Backend: backend,
			Workflow: workflow.New(
				backend,
				workflow.WithLimit(conf.Workflow.Limit),
				workflow.WithLogger(logger),
				workflow.WithSearchOptions(search.WithDelay(conf.Search.Delay)),
			),
			Bulk: bulk.NewOrchestrator(bulk.NewStore(), bulk.NewRunner(conf.Bulk.Concurrency), logger),
		}
	}
}
