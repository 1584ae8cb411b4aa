package domain

import "context"

// SlotPool limita quantas requisições ficam em andamento ao mesmo tempo.
type SlotPool interface {
	// Acquire espera uma vaga até ctx encerrar e devolve o erro do ctx nesse
	// caso. release pode ser chamado mais de uma vez; só a primeira conta.
	Acquire(ctx context.Context) (release func(), err error)
	// InUse é o número de vagas ocupadas agora.
	InUse() int
}
