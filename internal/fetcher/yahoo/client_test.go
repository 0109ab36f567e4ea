package yahoo

import (
	"context"
	"errors"
	"testing"

	"github.com/ternarybob/funnel/internal/interfaces"
	"github.com/ternarybob/funnel/internal/models"
)

func TestSupports(t *testing.T) {
	client := NewClient(nil)

	supported := []models.GroupName{models.GroupValuation, models.GroupTechnicals}
	for _, group := range supported {
		if !client.Supports(group) {
			t.Errorf("Supports(%s) = false, want true", group)
		}
	}

	unsupported := []models.GroupName{models.GroupFundamentals, models.GroupOwnership, models.GroupShareData}
	for _, group := range unsupported {
		if client.Supports(group) {
			t.Errorf("Supports(%s) = true, want false", group)
		}
	}
}

func TestFetchGroup_RejectsUnsupportedGroup(t *testing.T) {
	client := NewClient(nil)

	_, err := client.FetchGroup(context.Background(), "NYSE:AAPL", models.GroupFundamentals)
	if !errors.Is(err, interfaces.ErrDataUnavailable) {
		t.Errorf("FetchGroup(fundamentals) error = %v, want ErrDataUnavailable", err)
	}
}

func TestFetchGroup_HonorsCancelledContext(t *testing.T) {
	client := NewClient(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchGroup(ctx, "NYSE:AAPL", models.GroupValuation)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("FetchGroup() error = %v, want context.Canceled", err)
	}
}

func TestClassifyTrend(t *testing.T) {
	tests := []struct {
		name                 string
		price, sma50, sma200 float64
		want                 models.Trend
	}{
		{"price above both rising averages", 120, 110, 100, models.TrendStrongUp},
		{"price above long average only", 105, 110, 100, models.TrendUp},
		{"price below both falling averages", 80, 90, 100, models.TrendStrongDown},
		{"price below long average only", 95, 90, 100, models.TrendDown},
		{"missing short average", 100, 0, 100, models.TrendNeutral},
		{"missing long average", 100, 100, 0, models.TrendNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyTrend(tt.price, tt.sma50, tt.sma200); got != tt.want {
				t.Errorf("classifyTrend(%v, %v, %v) = %s, want %s", tt.price, tt.sma50, tt.sma200, got, tt.want)
			}
		})
	}
}
