// Package services – HomepageService
//
// This file computes the public landing-page aggregates: headline counts,
// average satisfaction, typical time to first admin response, the newest
// and best-rated complaints (redacted), and per-category and per-status
// counts.
package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/tbourn/go-complaints-backend/internal/domain"
)

// HomepageService derives the homepage payload from all complaints.
type HomepageService struct {
	Complaints ComplaintRepo

	// Recent and TopRated size the two complaint lists.
	Recent   int
	TopRated int
	// DefaultResponseTime is reported while no complaint has an admin response.
	DefaultResponseTime time.Duration
}

// NewHomepageService constructs a HomepageService with defaults.
func NewHomepageService(complaints ComplaintRepo) *HomepageService {
	return &HomepageService{
		Complaints:          complaints,
		Recent:              5,
		TopRated:            3,
		DefaultResponseTime: 24 * time.Hour,
	}
}

// HomepageStats holds the headline numbers.
type HomepageStats struct {
	Total        int    `json:"total"`
	Resolved     int    `json:"resolved"`
	Pending      int    `json:"pending"`
	InProgress   int    `json:"inProgress"`
	Satisfaction string `json:"satisfaction"`
	ResponseTime string `json:"responseTime"`
}

// RecentComplaint is the public projection of a complaint in the recent list.
type RecentComplaint struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Rating    int       `json:"rating"`
}

// TopRatedComplaint is the public projection of a complaint in the top-rated list.
type TopRatedComplaint struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Status   string `json:"status"`
	Rating   int    `json:"rating"`
}

// StatusDistribution counts complaints per status.
type StatusDistribution struct {
	Pending    int `json:"pending"`
	InProgress int `json:"inProgress"`
	Resolved   int `json:"resolved"`
	Closed     int `json:"closed"`
}

// HomepageData is the full homepage payload.
type HomepageData struct {
	Stats              HomepageStats       `json:"stats"`
	RecentComplaints   []RecentComplaint   `json:"recentComplaints"`
	TopRatedComplaints []TopRatedComplaint `json:"topRatedComplaints"`
	Categories         map[string]int      `json:"categories"`
	StatusDistribution StatusDistribution  `json:"statusDistribution"`
}

// Data computes the homepage payload over every complaint.
func (s *HomepageService) Data(ctx context.Context) (*HomepageData, error) {
	ctx, span := otel.Tracer("services/HomepageService").Start(ctx, "Data")
	defer span.End()

	all, err := s.Complaints.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	out := &HomepageData{
		RecentComplaints:   []RecentComplaint{},
		TopRatedComplaints: []TopRatedComplaint{},
		Categories:         map[string]int{},
	}

	var (
		ratingSum, ratingN int
		firstResp          time.Duration
		firstRespN         int
	)
	for i := range all {
		c := &all[i]
		out.Categories[c.Category]++
		switch c.Status {
		case domain.StatusPending:
			out.StatusDistribution.Pending++
		case domain.StatusInProgress:
			out.StatusDistribution.InProgress++
		case domain.StatusResolved:
			out.StatusDistribution.Resolved++
		case domain.StatusClosed:
			out.StatusDistribution.Closed++
		}
		if c.Rating > 0 {
			ratingSum += c.Rating
			ratingN++
		}
		for _, r := range c.Responses {
			if r.FromAdmin() {
				if d := r.CreatedAt.Sub(c.CreatedAt); d > 0 {
					firstResp += d
				}
				firstRespN++
				break
			}
		}
	}

	out.Stats = HomepageStats{
		Total:        len(all),
		Resolved:     out.StatusDistribution.Resolved,
		Pending:      out.StatusDistribution.Pending,
		InProgress:   out.StatusDistribution.InProgress,
		Satisfaction: "0.0",
		ResponseTime: formatHours(s.DefaultResponseTime),
	}
	if ratingN > 0 {
		out.Stats.Satisfaction = formatRating(float64(ratingSum) / float64(ratingN))
	}
	if firstRespN > 0 {
		out.Stats.ResponseTime = formatHours(firstResp / time.Duration(firstRespN))
	}

	// Newest first.
	byNewest := make([]int, len(all))
	for i := range byNewest {
		byNewest[i] = i
	}
	sort.SliceStable(byNewest, func(a, b int) bool {
		return all[byNewest[a]].CreatedAt.After(all[byNewest[b]].CreatedAt)
	})
	for _, i := range byNewest[:clampLen(s.Recent, len(byNewest))] {
		c := all[i]
		out.RecentComplaints = append(out.RecentComplaints, RecentComplaint{
			ID: c.ID, Title: c.Title, Category: c.Category, Status: string(c.Status),
			CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt, Rating: c.Rating,
		})
	}

	// Highest rating first among rated complaints.
	rated := make([]int, 0, ratingN)
	for i := range all {
		if all[i].Rating > 0 {
			rated = append(rated, i)
		}
	}
	sort.SliceStable(rated, func(a, b int) bool {
		return all[rated[a]].Rating > all[rated[b]].Rating
	})
	for _, i := range rated[:clampLen(s.TopRated, len(rated))] {
		c := all[i]
		out.TopRatedComplaints = append(out.TopRatedComplaints, TopRatedComplaint{
			ID: c.ID, Title: c.Title, Category: c.Category, Status: string(c.Status), Rating: c.Rating,
		})
	}

	return out, nil
}

// formatRating renders avg with one decimal, rounding halves up (4.25 -> "4.3").
func formatRating(avg float64) string {
	return strconv.FormatFloat(math.Floor(avg*10+0.5)/10, 'f', 1, 64)
}

// formatHours renders d as whole hours, e.g. "24h". Anything above zero
// rounds up to at least "1h".
func formatHours(d time.Duration) string {
	if d <= 0 {
		return "0h"
	}
	h := int(math.Round(d.Hours()))
	if h < 1 {
		h = 1
	}
	return fmt.Sprintf("%dh", h)
}

func clampLen(want, have int) int {
	return max(0, min(want, have))
}
