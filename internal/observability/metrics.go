package observability

// Metric keys shared by the registry and its consumers. Label sets are fixed per key:
//
//	usecase_requests_total{use_case,outcome}
//	usecase_duration_seconds{use_case}
//	http_requests_total{method,route,status}
//	http_request_duration_seconds{method,route,status}
//	external_requests_total{peer,endpoint,outcome}
//	external_request_duration_seconds{peer,endpoint}
const (
	MUsecaseRequests         MetricKey = "usecase_requests_total"
	MUsecaseDuration         MetricKey = "usecase_duration_seconds"
	MHTTPRequests            MetricKey = "http_requests_total"
	MHTTPRequestDuration     MetricKey = "http_request_duration_seconds"
	MExternalRequests        MetricKey = "external_requests_total"
	MExternalRequestDuration MetricKey = "external_request_duration_seconds"
)

// Peers reported on the external_* metrics.
const (
	PeerPaymentGateway = "razorpay"
	PeerSMTP           = "smtp"
)
