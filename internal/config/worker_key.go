package config

type WorkerKeyStruct struct {
	PersistSubmissionAuditQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistSubmissionAuditQueue: "persist_submission_audit_queue",
}
