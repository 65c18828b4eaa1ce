package config

type WorkerKeyStruct struct {
	MailOutboxQueue     string
	MailDeadLetterQueue string
}

var WorkerKey = &WorkerKeyStruct{
	MailOutboxQueue:     "mail_outbox_queue",
	MailDeadLetterQueue: "mail_dead_letter_queue",
}
