package model

import "time"

type HubStats struct {
	TotalUsers       int           `json:"total_users"`
	TotalConnections int           `json:"total_connections"`
	ActiveGroups     int           `json:"active_groups"`
	Uptime           time.Duration `json:"uptime"`
}
