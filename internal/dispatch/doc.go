// Package dispatch delivers lead events to the downstream CRM webhook.
//
// Delivery is deliberately fire-and-forget: one POST per event, no retry,
// no queue, no persistence of failures. Losing an attribution event is an
// acceptable degradation for a marketing funnel; blocking the visitor flow
// is not. Failures come back as a typed *DeliveryError so callers (and
// tests) can observe outcomes without scraping logs, but nothing here ever
// reaches the visitor-facing response.
package dispatch
