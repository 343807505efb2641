package models

import "time"

// ResultType tags the kind of raw observation a parser produced
type ResultType string

const (
	ResultTypePort        ResultType = "port"
	ResultTypeService     ResultType = "service"
	ResultTypeVuln        ResultType = "vulnerability"
	ResultTypeCredential  ResultType = "credential"
	ResultTypeFile        ResultType = "file"
	ResultTypeDirectory   ResultType = "directory"
	ResultTypeSubdomain   ResultType = "subdomain"
	ResultTypeTechnology  ResultType = "technology"
	ResultTypeCertificate ResultType = "certificate"
	ResultTypeDNSRecord   ResultType = "dns_record"
	ResultTypeHeader      ResultType = "header"
	ResultTypeParameter   ResultType = "parameter"
	ResultTypeEndpoint    ResultType = "endpoint"
	ResultTypeRaw         ResultType = "raw"
)

// Result is a raw structured observation keyed to the job that produced it.
// Results are always inserted, never merged.
type Result struct {
	ID          string                 `json:"id" badgerhold:"key"`
	JobID       string                 `json:"job_id" badgerhold:"index"`
	AssetID     string                 `json:"asset_id,omitempty" badgerhold:"index"`
	ResultType  ResultType             `json:"result_type" badgerhold:"index"`
	Severity    Severity               `json:"severity,omitempty"`
	RawData     string                 `json:"raw_data,omitempty"`
	ParsedData  map[string]interface{} `json:"parsed_data"`
	Fingerprint string                 `json:"fingerprint,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}
