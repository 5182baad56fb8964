// Package adapter contains the platform-specific extraction strategies the
// orchestrator invokes against a live page.
package adapter

import (
	"context"
	"fmt"

	"github.com/adpick/place-crawler/internal/crawl"
)

// Selectors for the Naver Place mobile business-profile page. These track the
// markup the place pages render after hydration.
const (
	placeRootSelector        = "#app-root .place_detail_wrapper"
	placeNameSelector        = "#_title span.GHAhO"
	placeCategorySelector    = "#_title span.lnJFt"
	placeCouponSelector      = ".place_section[data-nclicks-area-code='cpn']"
	placeCouponTitleSelector = ".place_section[data-nclicks-area-code='cpn'] strong"
	placeNewsSelector        = ".place_section[data-nclicks-area-code='nws']"
	placeNewsTitleSelector   = ".place_section[data-nclicks-area-code='nws'] strong"
	placeReserveSelector     = "a[href*='booking.naver.com']"
	placeReserveTitleAttr    = "aria-label"
)

// NaverPlace extracts business-profile data from a place page.
type NaverPlace struct{}

// NewNaverPlace returns the NaverPlace adapter.
func NewNaverPlace() *NaverPlace {
	return &NaverPlace{}
}

// Platform identifies this adapter.
func (a *NaverPlace) Platform() crawl.Platform {
	return crawl.PlatformNaverPlace
}

// ReadySelector waits for the hydrated business panel before extraction.
func (a *NaverPlace) ReadySelector() string {
	return placeRootSelector
}

// Extract reads the business name, category, and the coupon/news/reservation
// flag pairs. A missing optional section means the flag is false; only a
// missing root panel is a structural failure.
func (a *NaverPlace) Extract(ctx context.Context, dom crawl.DOM) (crawl.Fields, error) {
	rootPresent, err := dom.Exists(ctx, placeRootSelector)
	if err != nil {
		return crawl.Fields{}, fmt.Errorf("check business panel: %w", err)
	}
	if !rootPresent {
		return crawl.Fields{}, fmt.Errorf("business panel %q never appeared", placeRootSelector)
	}

	fields := &crawl.PlaceFields{}
	if fields.Name, err = dom.Text(ctx, placeNameSelector); err != nil {
		return crawl.Fields{}, fmt.Errorf("read business name: %w", err)
	}
	if fields.Category, err = dom.Text(ctx, placeCategorySelector); err != nil {
		return crawl.Fields{}, fmt.Errorf("read business category: %w", err)
	}

	if fields.HasCoupon, fields.CouponTitle, err = optionalSection(ctx, dom, placeCouponSelector, placeCouponTitleSelector); err != nil {
		return crawl.Fields{}, fmt.Errorf("read coupon section: %w", err)
	}
	if fields.HasNews, fields.NewsTitle, err = optionalSection(ctx, dom, placeNewsSelector, placeNewsTitleSelector); err != nil {
		return crawl.Fields{}, fmt.Errorf("read news section: %w", err)
	}

	reservePresent, err := dom.Exists(ctx, placeReserveSelector)
	if err != nil {
		return crawl.Fields{}, fmt.Errorf("read reservation link: %w", err)
	}
	fields.HasReservation = reservePresent
	if reservePresent {
		if fields.ReservationTitle, err = dom.Attr(ctx, placeReserveSelector, placeReserveTitleAttr); err != nil {
			return crawl.Fields{}, fmt.Errorf("read reservation title: %w", err)
		}
	}

	return crawl.Fields{Place: fields}, nil
}

// optionalSection reports whether the section is rendered and, if so, its
// title text. Absent sections are not errors.
func optionalSection(ctx context.Context, dom crawl.DOM, sectionSel, titleSel string) (bool, string, error) {
	present, err := dom.Exists(ctx, sectionSel)
	if err != nil {
		return false, "", err
	}
	if !present {
		return false, "", nil
	}
	title, err := dom.Text(ctx, titleSel)
	if err != nil {
		return false, "", err
	}
	return true, title, nil
}
