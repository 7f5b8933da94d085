// Package fare provides the Amadeus flight-offers lookup client.
package fare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/everyshare/tripbot/domain"
)

// Searcher looks up the lowest fare for a completed slot set.
type Searcher interface {
	SearchLowestFare(ctx context.Context, slots domain.FlightSlots) (string, error)
}

// Client is the Amadeus flight-offers-search client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ Searcher = (*Client)(nil)

// NewClient creates a client using the OAuth2 client-credentials flow.
func NewClient(baseURL, clientID, clientSecret string) *Client {
	base := strings.TrimSuffix(baseURL, "/")
	cc := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     base + "/v1/security/oauth2/token",
	}
	return &Client{
		baseURL:    base,
		httpClient: cc.Client(context.Background()),
	}
}

// NewClientWithHTTP creates a client with a caller-provided http client.
// Used in tests against a stub server.
func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: strings.TrimSuffix(baseURL, "/"), httpClient: httpClient}
}

type offersRequest struct {
	OriginDestinations []originDestination `json:"originDestinations"`
	Travelers          []traveler          `json:"travelers"`
	Sources            []string            `json:"sources"`
	SearchCriteria     searchCriteria      `json:"searchCriteria"`
	CurrencyCode       string              `json:"currencyCode"`
}

type originDestination struct {
	ID                     string    `json:"id"`
	OriginLocationCode     string    `json:"originLocationCode"`
	DestinationLocationCode string   `json:"destinationLocationCode"`
	DepartureDateTimeRange dateRange `json:"departureDateTimeRange"`
}

type dateRange struct {
	Date string `json:"date"`
}

type traveler struct {
	ID           string   `json:"id"`
	TravelerType string   `json:"travelerType"`
	FareOptions  []string `json:"fareOptions"`
}

type searchCriteria struct {
	MaxFlightOffers int           `json:"maxFlightOffers"`
	FlightFilters   flightFilters `json:"flightFilters"`
}

type flightFilters struct {
	CabinRestrictions []cabinRestriction `json:"cabinRestrictions"`
}

type cabinRestriction struct {
	Cabin                string   `json:"cabin"`
	Coverage             string   `json:"coverage"`
	OriginDestinationIDs []string `json:"originDestinationIds"`
}

type offersResponse struct {
	Data []flightOffer `json:"data"`
}

type flightOffer struct {
	Itineraries []itinerary `json:"itineraries"`
	Price       price       `json:"price"`
}

type itinerary struct {
	Segments []segment `json:"segments"`
}

type segment struct {
	Departure   endpoint `json:"departure"`
	Arrival     endpoint `json:"arrival"`
	CarrierCode string   `json:"carrierCode"`
}

type endpoint struct {
	IataCode string `json:"iataCode"`
	At       string `json:"at"`
}

type price struct {
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

// SearchLowestFare runs a one-way economy search and renders a fare summary
// for the cheapest offer.
func (c *Client) SearchLowestFare(ctx context.Context, slots domain.FlightSlots) (string, error) {
	travelers := make([]traveler, slots.Adults)
	for i := range travelers {
		travelers[i] = traveler{
			ID:           strconv.Itoa(i + 1),
			TravelerType: "ADULT",
			FareOptions:  []string{"STANDARD"},
		}
	}
	reqBody := offersRequest{
		OriginDestinations: []originDestination{{
			ID:                      "1",
			OriginLocationCode:      slots.OriginCode,
			DestinationLocationCode: slots.DestinationCode,
			DepartureDateTimeRange:  dateRange{Date: slots.DepartureDate},
		}},
		Travelers: travelers,
		Sources:   []string{"GDS"},
		SearchCriteria: searchCriteria{
			MaxFlightOffers: 50,
			FlightFilters: flightFilters{
				CabinRestrictions: []cabinRestriction{{
					Cabin:                "ECONOMY",
					Coverage:             "MOST_SEGMENTS",
					OriginDestinationIDs: []string{"1"},
				}},
			},
		},
		CurrencyCode: "KRW",
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal offers request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/shopping/flight-offers", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build offers request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("offers request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read offers response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("offers request returned %d: %s", resp.StatusCode, body)
	}

	var offers offersResponse
	if err := json.Unmarshal(body, &offers); err != nil {
		return "", fmt.Errorf("failed to decode offers response: %w", err)
	}
	lowest := pickLowest(offers.Data)
	if lowest == nil {
		return "", fmt.Errorf("no offers for %s-%s on %s", slots.OriginCode, slots.DestinationCode, slots.DepartureDate)
	}
	return summarize(slots, *lowest), nil
}

func pickLowest(offers []flightOffer) *flightOffer {
	var lowest *flightOffer
	lowestPrice := 0.0
	for i := range offers {
		offer := offers[i]
		if len(offer.Itineraries) == 0 || len(offer.Itineraries[0].Segments) == 0 {
			continue
		}
		total, err := strconv.ParseFloat(offer.Price.Total, 64)
		if err != nil {
			continue
		}
		if lowest == nil || total < lowestPrice {
			lowest = &offers[i]
			lowestPrice = total
		}
	}
	return lowest
}

// summarize renders the user-facing fare summary in Korean.
func summarize(slots domain.FlightSlots, offer flightOffer) string {
	segments := offer.Itineraries[0].Segments
	first := segments[0]
	last := segments[len(segments)-1]
	airline := first.CarrierCode

	stops := "직항"
	if len(segments) > 1 {
		stops = fmt.Sprintf("경유 %d회", len(segments)-1)
	}

	var b strings.Builder
	b.WriteString("최저가 항공편\n")
	fmt.Fprintf(&b, "노선: %s(%s) → %s(%s)\n", slots.Origin, first.Departure.IataCode, slots.Destination, last.Arrival.IataCode)
	fmt.Fprintf(&b, "출발: %s\n", formatAt(first.Departure.At))
	fmt.Fprintf(&b, "도착: %s\n", formatAt(last.Arrival.At))
	fmt.Fprintf(&b, "경유: %s\n", stops)
	fmt.Fprintf(&b, "금액: %s %s\n", offer.Price.Total, currencyOr(offer.Price.Currency, "KRW"))
	fmt.Fprintf(&b, "항공사: %s\n", airline)
	fmt.Fprintf(&b, "항공사 로고: https://pic.tripcdn.com/airline_logo/3x/%s.webp", strings.ToLower(airline))
	return b.String()
}

func formatAt(at string) string {
	return strings.Replace(at, "T", " ", 1)
}

func currencyOr(currency, fallback string) string {
	if currency != "" {
		return currency
	}
	return fallback
}
