package core

type Services struct {
	Domain  *DomainService
	Mailbox *MailboxService
	Alias   *AliasService
	Stats   *StatsService
}

func NewServices(store Store) *Services {
	return &Services{
		Domain:  NewDomainService(store),
		Mailbox: NewMailboxService(store),
		Alias:   NewAliasService(store),
		Stats:   NewStatsService(store),
	}
}
