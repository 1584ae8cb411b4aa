// Package domain define contratos e tipos de domínio para rate limit e concorrência.
//
// Este pacote não depende de net/http nem de implementações concretas.
// O contador é de janela fixa: cada chave tem um Entry com a contagem e o
// instante em que a janela expira. O armazenamento fica atrás de EntryStore,
// para que memória (um processo) e Redis (várias instâncias) sejam trocáveis.
package domain
