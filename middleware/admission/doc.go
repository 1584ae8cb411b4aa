// Package admission é o portão das rotas de escrita.
//
// Ordem fixa das etapas, da mais barata para a mais cara:
//
//   1) origem (OriginGuard)
//   2) configuração da ação (Gate.Ready)
//   3) janela fixa por cliente (Limiter)
//   4) corpo JSON
//   5) captcha (CaptchaVerifier)
//   6) normalização e política dos campos (Submission.Sanitize)
//
// A primeira rejeição encerra o pipeline com um *Error; nada roda em paralelo.
// Pre-flight e método são tratados antes, pelo middleware CORS.
package admission
