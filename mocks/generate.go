package mocks

//go:generate mockgen -destination=./mock_exchange_client.go -package=mocks github.com/rxtech-lab/argo-bot/internal/exchange Client
//go:generate mockgen -destination=./mock_feed.go -package=mocks github.com/rxtech-lab/argo-bot/internal/feed Feed
//go:generate mockgen -destination=./mock_strategy.go -package=mocks github.com/rxtech-lab/argo-bot/internal/scheduler Strategy
